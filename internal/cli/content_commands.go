package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jrsteele09/go-vocab-client/category"
	"github.com/jrsteele09/go-vocab-client/internal/utils"
	"github.com/jrsteele09/go-vocab-client/vocabulary"
)

func runVocab(ctx context.Context, a *App, args []string) error {
	sub, rest, err := subcommand("vocab", args, "list, get, search, by-category, add, update, delete")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		vocabs, err := a.vocabularies.List(ctx)
		if err != nil {
			return err
		}
		a.printVocabularies(vocabs)
	case "get":
		id, err := requireArg("vocab get", rest, "a vocabulary id")
		if err != nil {
			return err
		}
		v, err := a.vocabularies.Get(ctx, id)
		if err != nil {
			return err
		}
		a.printVocabulary(v)
	case "search":
		word, err := requireArg("vocab search", rest, "a word")
		if err != nil {
			return err
		}
		vocabs, err := a.vocabularies.Search(ctx, word)
		if err != nil {
			return err
		}
		a.printVocabularies(vocabs)
	case "by-category":
		id, err := requireArg("vocab by-category", rest, "a category id")
		if err != nil {
			return err
		}
		vocabs, err := a.vocabularies.ByCategory(ctx, id)
		if err != nil {
			return err
		}
		a.printVocabularies(vocabs)
	case "add":
		return runVocabAdd(ctx, a, rest)
	case "update":
		return runVocabUpdate(ctx, a, rest)
	case "delete":
		id, err := requireArg("vocab delete", rest, "a vocabulary id")
		if err != nil {
			return err
		}
		if err := a.vocabularies.Delete(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted vocabulary %s.\n", id)
	default:
		return fmt.Errorf("%w: unknown vocab command %q", ErrUsage, sub)
	}
	return nil
}

type meaningFlags struct {
	meaning      *string
	partOfSpeech *string
	example      *string
	translation  *string
	context      *string
}

func (m meaningFlags) build() ([]vocabulary.Meaning, error) {
	if strings.TrimSpace(*m.meaning) == "" {
		return nil, nil
	}
	pos, ok := vocabulary.ParsePartOfSpeech(*m.partOfSpeech)
	if !ok {
		return nil, fmt.Errorf("%w: unknown part of speech %q", ErrUsage, *m.partOfSpeech)
	}
	meaning := vocabulary.Meaning{Meaning: *m.meaning, PartOfSpeech: pos, Context: *m.context}
	if strings.TrimSpace(*m.example) != "" {
		meaning.Examples = []vocabulary.Example{{Sentence: *m.example, Translation: *m.translation}}
	}
	return []vocabulary.Meaning{meaning}, nil
}

func runVocabAdd(ctx context.Context, a *App, args []string) error {
	fs := newFlags("vocab add")
	word := fs.String("word", "", "the word")
	phonetic := fs.String("phonetic", "", "pronunciation")
	categories := fs.String("categories", "", "comma separated category ids")
	mf := meaningFlags{
		meaning:      fs.String("meaning", "", "first meaning"),
		partOfSpeech: fs.String("pos", "", "part of speech of the meaning"),
		example:      fs.String("example", "", "example sentence"),
		translation:  fs.String("translation", "", "translation of the example"),
		context:      fs.String("context", "", "where the meaning applies"),
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	meanings, err := mf.build()
	if err != nil {
		return err
	}

	req := vocabulary.CreateRequest{Word: *word, Meanings: meanings, Categories: splitList(*categories)}
	if *phonetic != "" {
		req.Phonetic = &vocabulary.Phonetic{Text: *phonetic}
	}
	v, err := a.vocabularies.Create(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Created vocabulary %s (%s).\n", v.Word, v.ID)
	return nil
}

func runVocabUpdate(ctx context.Context, a *App, args []string) error {
	fs := newFlags("vocab update")
	word := fs.String("word", "", "new spelling")
	categories := fs.String("categories", "", "comma separated category ids, replaces the current set")
	mf := meaningFlags{
		meaning:      fs.String("meaning", "", "replace the meanings with this one"),
		partOfSpeech: fs.String("pos", "", "part of speech of the meaning"),
		example:      fs.String("example", "", "example sentence"),
		translation:  fs.String("translation", "", "translation of the example"),
		context:      fs.String("context", "", "where the meaning applies"),
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := requireArg("vocab update", fs.Args(), "a vocabulary id")
	if err != nil {
		return err
	}

	req := vocabulary.UpdateRequest{Categories: splitList(*categories)}
	if isSet(fs, "word") {
		req.Word = utils.Ptr(*word)
	}
	if req.Meanings, err = mf.build(); err != nil {
		return err
	}
	v, err := a.vocabularies.Update(ctx, id, req)
	if err != nil {
		return err
	}
	a.printf("Updated vocabulary %s (%s).\n", v.Word, v.ID)
	return nil
}

func runCategory(ctx context.Context, a *App, args []string) error {
	sub, rest, err := subcommand("category", args, "list, get, stats, search, create, update, delete")
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		cats, err := a.categories.List(ctx)
		if err != nil {
			return err
		}
		a.printCategories(cats)
	case "stats":
		cats, err := a.categories.Stats(ctx)
		if err != nil {
			return err
		}
		a.printCategories(cats)
	case "get":
		id, err := requireArg("category get", rest, "a category id")
		if err != nil {
			return err
		}
		c, err := a.categories.Get(ctx, id)
		if err != nil {
			return err
		}
		a.printCategories([]category.Category{*c})
	case "search":
		cats, err := a.categories.Search(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		a.printCategories(cats)
	case "create":
		fs := newFlags("category create")
		req := category.CreateRequest{}
		fs.StringVar(&req.Name, "name", "", "category name")
		fs.StringVar(&req.Description, "description", "", "what belongs here")
		fs.StringVar(&req.Color, "color", "", "display colour, e.g. #3b82f6")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		c, err := a.categories.Create(ctx, req)
		if err != nil {
			return err
		}
		a.printf("Created category %s (%s).\n", c.Name, c.ID)
	case "update":
		return runCategoryUpdate(ctx, a, rest)
	case "delete":
		id, err := requireArg("category delete", rest, "a category id")
		if err != nil {
			return err
		}
		if err := a.categories.Delete(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted category %s.\n", id)
	default:
		return fmt.Errorf("%w: unknown category command %q", ErrUsage, sub)
	}
	return nil
}

func runCategoryUpdate(ctx context.Context, a *App, args []string) error {
	fs := newFlags("category update")
	name := fs.String("name", "", "category name")
	description := fs.String("description", "", "what belongs here")
	color := fs.String("color", "", "display colour")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := requireArg("category update", fs.Args(), "a category id")
	if err != nil {
		return err
	}

	req := category.UpdateRequest{}
	if isSet(fs, "name") {
		req.Name = utils.Ptr(*name)
	}
	if isSet(fs, "description") {
		req.Description = utils.Ptr(*description)
	}
	if isSet(fs, "color") {
		req.Color = utils.Ptr(*color)
	}
	c, err := a.categories.Update(ctx, id, req)
	if err != nil {
		return err
	}
	a.printf("Updated category %s (%s).\n", c.Name, c.ID)
	return nil
}

func subcommand(name string, args []string, choices string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: %s needs one of: %s", ErrUsage, name, choices)
	}
	return args[0], args[1:], nil
}

func (a *App) printVocabularies(vocabs []vocabulary.Vocabulary) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWORD\tMEANING\tCATEGORIES")
	for _, v := range vocabs {
		first := ""
		if len(v.Meanings) > 0 {
			first = v.Meanings[0].Meaning
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ID, v.Word, first, strings.Join(v.Categories, ", "))
	}
	_ = tw.Flush()
}

func (a *App) printVocabulary(v *vocabulary.Vocabulary) {
	a.printf("%s", v.Word)
	if v.Phonetic != nil && v.Phonetic.Text != "" {
		a.printf("  %s", v.Phonetic.Text)
	}
	a.printf("\n")
	for i, m := range v.Meanings {
		a.printf("  %d. ", i+1)
		if m.PartOfSpeech != "" {
			a.printf("(%s) ", m.PartOfSpeech)
		}
		a.printf("%s\n", m.Meaning)
		for _, ex := range m.Examples {
			a.printf("     e.g. %s\n", ex.Sentence)
		}
	}
	if len(v.Categories) > 0 {
		a.printf("  categories: %s\n", strings.Join(v.Categories, ", "))
	}
}

func (a *App) printCategories(cats []category.Category) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tWORDS\tDESCRIPTION")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Name, c.VocabularyCount, c.Description)
	}
	_ = tw.Flush()
}

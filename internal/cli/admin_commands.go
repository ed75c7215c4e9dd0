package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-vocab-client/admin"
	"github.com/jrsteele09/go-vocab-client/users"
)

func runAdmin(ctx context.Context, a *App, args []string) error {
	sub, rest, err := subcommand("admin", args, "stats, users, set-role, delete-user, vocabularies, categories, delete-vocabulary, delete-category")
	if err != nil {
		return err
	}
	switch sub {
	case "stats":
		stats, err := a.admin.DashboardStats(ctx)
		if err != nil {
			return err
		}
		a.printf("users:        %d\n", stats.TotalUsers)
		a.printf("vocabularies: %d\n", stats.TotalVocabularies)
		a.printf("categories:   %d\n", stats.TotalCategories)
		if !stats.Computed {
			a.printf("recent:       %d\n", stats.RecentActivity)
		}
	case "users":
		fs := newFlags("admin users")
		filter := admin.UserFilter{}
		fs.StringVar(&filter.Search, "search", "", "match username or email")
		fs.StringVar(&filter.Role, "role", "", "user, admin or all")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		list, err := a.admin.Users(ctx, filter)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tROLE\tWORDS")
		for _, u := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", u.ID, u.Username, u.Email, u.EffectiveRole(), u.VocabularyCount)
		}
		_ = tw.Flush()
	case "set-role":
		if len(rest) < 2 {
			return fmt.Errorf("%w: admin set-role needs a user id and a role", ErrUsage)
		}
		u, err := a.admin.UpdateUserRole(ctx, rest[0], users.RoleType(rest[1]))
		if err != nil {
			return err
		}
		a.printf("%s is now %s.\n", u.DisplayName(), u.EffectiveRole())
	case "delete-user":
		id, err := requireArg("admin delete-user", rest, "a user id")
		if err != nil {
			return err
		}
		if err := a.admin.DeleteUser(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted user %s.\n", id)
	case "vocabularies":
		fs := newFlags("admin vocabularies")
		filter := admin.VocabularyFilter{}
		fs.StringVar(&filter.Search, "search", "", "match the word")
		fs.StringVar(&filter.Category, "category", "", "category id or all")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		list, err := a.admin.Vocabularies(ctx, filter)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWORD\tAUTHOR")
		for _, v := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Word, v.AuthorUsername)
		}
		_ = tw.Flush()
	case "categories":
		list, err := a.admin.Categories(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tAUTHOR")
		for _, c := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.AuthorUsername)
		}
		_ = tw.Flush()
	case "delete-vocabulary":
		id, err := requireArg("admin delete-vocabulary", rest, "a vocabulary id")
		if err != nil {
			return err
		}
		if err := a.admin.DeleteVocabulary(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted vocabulary %s.\n", id)
	case "delete-category":
		id, err := requireArg("admin delete-category", rest, "a category id")
		if err != nil {
			return err
		}
		if err := a.admin.DeleteCategory(ctx, id); err != nil {
			return err
		}
		a.printf("Deleted category %s.\n", id)
	default:
		return fmt.Errorf("%w: unknown admin command %q", ErrUsage, sub)
	}
	return nil
}

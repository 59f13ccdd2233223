package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shashiranjanraj/zepto/database/seeders"
	"github.com/shashiranjanraj/zepto/pkg/migration"
)

// Migrate applies pending SQL migrations and reports them to out.
func Migrate(out io.Writer) error {
	db, err := openSQLOnly()
	if err != nil {
		return err
	}
	defer closeSQL(db)

	applied, err := migration.New(db).Run()
	for _, name := range applied {
		fmt.Fprintf(out, "  ✔ %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "Nothing to migrate.")
	}
	return nil
}

// Rollback reverts the last migration batch.
func Rollback(out io.Writer) error {
	db, err := openSQLOnly()
	if err != nil {
		return err
	}
	defer closeSQL(db)

	reverted, err := migration.New(db).Rollback()
	for _, name := range reverted {
		fmt.Fprintf(out, "  ↩ %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(reverted) == 0 {
		fmt.Fprintln(out, "Nothing to roll back.")
	}
	return nil
}

// MigrationStatus prints one row per registered migration.
func MigrationStatus(out io.Writer) error {
	db, err := openSQLOnly()
	if err != nil {
		return err
	}
	defer closeSQL(db)

	rows, err := migration.New(db).Status()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "STATUS\tBATCH\tMIGRATION")
	for _, s := range rows {
		status, batch := "Pending", "-"
		if s.Ran {
			status, batch = "Ran", fmt.Sprint(s.Batch)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", status, batch, s.Name)
	}
	return w.Flush()
}

// Seed opens the configured store and runs every seeder against it.
func Seed(ctx context.Context, out io.Writer) error {
	store, err := OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(context.Background()) //nolint:errcheck

	fmt.Fprintf(out, "Seeding %s store…\n", store.Driver)
	return seeders.RunAll(ctx, store, out)
}

// RouteList prints the route table.
func RouteList(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "METHOD\tPATH\tNAME")
	fmt.Fprintln(w, "------\t----\t----")
	for _, ri := range RouteTable() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, strings.TrimSpace(ri.Name))
	}
	return w.Flush()
}

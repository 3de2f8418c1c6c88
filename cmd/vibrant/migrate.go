package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/vibrant/internal/infrastructure/database"
	"github.com/nerrad567/vibrant/migrations"
)

// Actions accepted by "vibrant migrate".
const (
	migrateUp     = "up"
	migrateDown   = "down"
	migrateStatus = "status"
)

// cmdMigrate applies, rolls back or reports the schema of the profile
// database, then prints the resulting status. The display is not touched.
func (a *app) cmdMigrate(ctx context.Context, action string) error {
	switch action {
	case migrateUp, migrateDown, migrateStatus:
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	if err := a.loadConfig(false); err != nil {
		return err
	}
	if !a.cfg.Database.Enabled {
		return errors.New("database is disabled in the configuration")
	}

	all, err := migrations.All()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	db, closeDB, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	switch action {
	case migrateUp:
		err = db.Migrate(ctx, all)
	case migrateDown:
		err = db.MigrateDown(ctx, all)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", action, err)
	}
	return a.printMigrations(ctx, db, all)
}

func (a *app) printMigrations(ctx context.Context, db *database.DB, all []database.Migration) error {
	applied, pending, err := db.MigrationStatus(ctx, all)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	names := make(map[string]string, len(all))
	for _, m := range all {
		names[m.Version] = m.Name
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
	for _, r := range applied {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Version, names[r.Version], r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(tw, "%s\t%s\tpending\n", m.Version, m.Name)
	}
	return tw.Flush()
}

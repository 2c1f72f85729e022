package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradejournal/cmd/maintenance"
	"tradejournal/src/database"
	"tradejournal/src/ledger"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "tradejournal"
	app.Usage = "Trading journal maintenance commands"
	app.Version = Version

	app.Commands = []cli.Command{
		migrateCMD,
		recomputeCMD,
		setEquityCMD,
		exportCMD,
		statsCMD,
		usersCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	userFlag = cli.StringFlag{Name: "user", Usage: "username the command applies to"}

	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "create or update the schema and run data migrations",
		Action:      migrateAction,
		Description: `Run AutoMigrate for every model, then pending data migrations`,
	}
	recomputeCMD = cli.Command{
		Name:   "recompute",
		Usage:  "replay equity chains from the latest starting equity",
		Action: recomputeAction,
		Flags: []cli.Flag{
			userFlag,
			cli.BoolFlag{Name: "all", Usage: "recompute every user with trades"},
		},
		Description: `Repair stored equity values for one user (--user) or everyone (--all)`,
	}
	setEquityCMD = cli.Command{
		Name:   "set-equity",
		Usage:  "set a user's starting equity",
		Action: setEquityAction,
		Flags: []cli.Flag{
			userFlag,
			cli.StringFlag{Name: "amount", Usage: "starting equity, e.g. 1000.50"},
		},
	}
	exportCMD = cli.Command{
		Name:   "export",
		Usage:  "export a user's journal as CSV",
		Action: exportAction,
		Flags: []cli.Flag{
			userFlag,
			cli.StringFlag{Name: "output, o", Usage: "file to write, stdout when empty"},
		},
	}
	statsCMD = cli.Command{
		Name:   "stats",
		Usage:  "print a user's statistics as JSON",
		Action: statsAction,
		Flags: []cli.Flag{
			userFlag,
			cli.StringFlag{Name: "from", Usage: "first day, YYYY-MM-DD"},
			cli.StringFlag{Name: "to", Usage: "last day, YYYY-MM-DD"},
		},
	}
	usersCMD = cli.Command{
		Name:   "users",
		Usage:  "list accounts with their trade counts",
		Action: usersAction,
	}
)

func openMaintenance(cmd string, migrate bool) (*maintenance.Maintenance, error) {
	log := logrus.WithField("cmd", cmd)

	cfg := database.GetConfig()
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	return maintenance.New(log, db, ledger.GetConfig()), nil
}

func requireUser(c *cli.Context) (string, error) {
	user := c.String("user")
	if user == "" {
		return "", cli.NewExitError("--user is required", 2)
	}
	return user, nil
}

func migrateAction(_ *cli.Context) error {
	logrus.Info("Starting migrate CMD")

	if _, err := database.InitMainDB(database.GetConfig()); err != nil {
		logrus.WithError(err).Error("Migration failed")
		return err
	}
	return nil
}

func recomputeAction(c *cli.Context) error {
	user := c.String("user")
	if user == "" && !c.Bool("all") {
		return cli.NewExitError("either --user or --all is required", 2)
	}

	m, err := openMaintenance("recompute", true)
	if err != nil {
		return err
	}

	updated, err := m.Recompute(context.Background(), user)
	if err != nil {
		logrus.WithError(err).Error("Recompute failed")
		return err
	}

	logrus.WithField("updated", updated).Info("Recompute finished")
	return nil
}

func setEquityAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	if c.String("amount") == "" {
		return cli.NewExitError("--amount is required", 2)
	}

	m, err := openMaintenance("set-equity", true)
	if err != nil {
		return err
	}
	return m.SetEquity(context.Background(), user, c.String("amount"))
}

func exportAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	m, err := openMaintenance("export", false)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	return m.Export(context.Background(), user, out)
}

func statsAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}

	m, err := openMaintenance("stats", false)
	if err != nil {
		return err
	}
	return m.Stats(context.Background(), user, c.String("from"), c.String("to"), os.Stdout)
}

func usersAction(_ *cli.Context) error {
	m, err := openMaintenance("users", false)
	if err != nil {
		return err
	}
	return m.Users(context.Background(), os.Stdout)
}

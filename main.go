package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"xpug.it/stationagg/internal/config"
)

// BuildVersion is set at link time.
var BuildVersion = "dev"

// conf is filled by initConfig before the action runs.
var conf *config.Config

func main() {
	app := cli.NewApp()
	app.Name = "calculate_average"
	app.Usage = "print min/mean/max per station of a measurements file"
	app.ArgsUsage = "[measurements file, default " + defaultDataFile + "]"
	app.Version = BuildVersion
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "config file path (yaml, toml or json)",
		},
		cli.StringFlag{
			Name:  "log, l",
			Usage: "log level: debug,info,warning,error",
		},
		cli.StringFlag{
			Name:  "loader",
			Usage: "how the file is loaded: mmap,read",
		},
		cli.IntFlag{
			Name:  "capacity",
			Usage: "hash table slots, rounded up to a power of two",
		},
		cli.IntFlag{
			Name:  "max-key-len",
			Usage: "longest station name in bytes",
		},
		cli.StringFlag{
			Name:  "hash",
			Usage: "table hash: prefix,xxhash",
		},
		cli.StringFlag{
			Name:  "rounding",
			Usage: "mean rounding: half-even,half-up",
		},
		cli.StringFlag{
			Name:  "engine",
			Usage: "aggregation engine: table,baseline",
			Value: engineTable,
		},
		cli.StringFlag{
			Name:  "cpuprofile",
			Usage: "write cpu profile to `file`",
		},
	}
	app.Before = initConfig
	app.Action = calculate

	if err := app.Run(os.Args); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func initConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("log") {
		cfg.Log.Level = c.String("log")
	}
	if c.IsSet("loader") {
		cfg.Input.Loader = c.String("loader")
	}
	if c.IsSet("capacity") {
		cfg.Table.Capacity = c.Int("capacity")
	}
	if c.IsSet("max-key-len") {
		cfg.Table.MaxKeyLen = c.Int("max-key-len")
	}
	if c.IsSet("hash") {
		cfg.Table.Hash = c.String("hash")
	}
	if c.IsSet("rounding") {
		cfg.Output.Rounding = c.String("rounding")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if e := c.String("engine"); e != engineTable && e != engineBaseline {
		return errors.Errorf("unknown engine %q", e)
	}

	lv, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lv)
	logrus.SetOutput(os.Stderr)

	conf = cfg
	return nil
}

package main

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"xpug.it/stationagg/internal/aggregate"
	"xpug.it/stationagg/internal/input"
	"xpug.it/stationagg/internal/report"
	"xpug.it/stationagg/internal/table"
)

const defaultDataFile = "measurements.txt"

const (
	engineTable    = "table"
	engineBaseline = "baseline"
)

// loadWarning is the table load above which probe chains get long.
const loadWarning = 0.5

func calculate(c *cli.Context) error {
	if path := c.String("cpuprofile"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	name := dataFileName(c)
	out := bufio.NewWriter(os.Stdout)
	if err := calculateFile(name, c.String("engine"), out); err != nil {
		fields := logrus.Fields{"path": name}
		var lineErr *aggregate.LineError
		if errors.As(err, &lineErr) {
			fields["line"] = lineErr.Line
		}
		logrus.WithFields(fields).Error(err)
		return cli.NewExitError("", 1)
	}
	return errors.Wrap(out.Flush(), "write stdout")
}

func dataFileName(c *cli.Context) string {
	name := defaultDataFile
	if c.NArg() > 0 {
		name = c.Args().First()
	}
	return name
}

// calculateFile aggregates the file name with the chosen engine and writes
// the report to w. Nothing is written when aggregation fails.
func calculateFile(name, engine string, w io.Writer) error {
	rounding, err := report.ParseRounding(conf.Output.Rounding)
	if err != nil {
		return err
	}

	opts := conf.InputOptions()
	region, err := input.Open(name, opts)
	if err != nil {
		return err
	}
	defer region.Close()

	log := logrus.WithFields(logrus.Fields{
		"path":   name,
		"loader": opts.Loader,
		"engine": engine,
		"bytes":  region.Len(),
	})
	log.Debug("input loaded")

	start := time.Now()
	var entries []table.Entry
	switch engine {
	case engineTable:
		tbl, err := conf.NewTable()
		if err != nil {
			return err
		}
		if err := aggregate.Run(region.Bytes(), tbl); err != nil {
			return err
		}
		entries = tbl.DrainSorted()
		log = log.WithField("load", tbl.Load())
		if tbl.Load() > loadWarning {
			log.Warnf("table is %.0f%% full, raise table.capacity", tbl.Load()*100)
		}
	case engineBaseline:
		entries, err = aggregate.Baseline(bytes.NewReader(region.Bytes()), conf.Table.MaxKeyLen)
		if err != nil {
			return err
		}
	default:
		return errors.Errorf("unknown engine %q", engine)
	}
	log.WithFields(logrus.Fields{
		"keys":    len(entries),
		"elapsed": time.Since(start),
	}).Debug("aggregated")

	rows, err := report.Extract(entries)
	if err != nil {
		return err
	}
	return report.Write(w, rows, rounding)
}

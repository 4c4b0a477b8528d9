//
//   Copyright 2023 The original authors
//
//   Licensed under the Apache License, Version 2.0 (the "License");
//   you may not use this file except in compliance with the License.
//   You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
//

// Command createmeasurements writes a random measurements file of
// "<station>;<value>" lines, one per row.
//
// Based on the 1brc CreateMeasurements generator.
package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"xpug.it/stationagg/internal/fixedpoint"
)

const (
	coldestTemp = -99.9
	hottestTemp = 99.9
	batchSize   = 10000
)

// builtinStations is used when no station list file is found.
var builtinStations = []string{
	"Abha", "Abidjan", "Abéché", "Accra", "Addis Ababa", "Adelaide", "Aden",
	"Albuquerque", "Alexandria", "Algiers", "Alice Springs", "Almaty",
	"Amsterdam", "Anadyr", "Anchorage", "Ankara", "Bridgetown", "Bulawayo",
	"Conakry", "Cracow", "Hamburg", "Istanbul", "Palembang", "Roseau",
	"St. John's", "Zürich",
}

type FileOpener interface {
	Open(name string) (io.ReadCloser, error)
}

type RealFileOpener struct{}

func (RealFileOpener) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

type FileWriter interface {
	Create(name string) (io.WriteCloser, error)
}

type RealFileWriter struct{}

func (RealFileWriter) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

type Random interface {
	Float64() float64
	Intn(n int) int
}

func newRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func main() {
	app := cli.NewApp()
	app.Name = "createmeasurements"
	app.Usage = "write a random measurements file"
	app.ArgsUsage = "<rows>"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "stations",
			Usage: "station list, one `name;...` per line, # starts a comment",
			Value: "data/weather_stations.csv",
		},
		cli.StringFlag{
			Name:  "out, o",
			Usage: "output `file`",
			Value: "measurements.txt",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed, 0 picks one from the clock",
		},
		cli.StringFlag{
			Name:  "log, l",
			Usage: "log level: debug,info,warning,error",
			Value: "info",
		},
	}
	app.Before = func(c *cli.Context) error {
		lv, err := logrus.ParseLevel(c.String("log"))
		if err != nil {
			return err
		}
		logrus.SetLevel(lv)
		return nil
	}
	app.Action = create

	if err := app.Run(os.Args); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func create(c *cli.Context) error {
	numRowsToCreate, err := checkArgs(c.Args())
	if err != nil {
		return err
	}

	weatherStationNames, err := buildWeatherStationNameList(RealFileOpener{}, c.String("stations"))
	if err != nil {
		return err
	}

	logrus.Info(estimateFileSize(weatherStationNames, numRowsToCreate))

	return buildTestData(weatherStationNames, numRowsToCreate, c.String("out"), RealFileWriter{}, newRandom(c.Int64("seed")))
}

func checkArgs(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one argument, the number of rows, e.g. createmeasurements 1000")
	}
	numRows, err := strconv.Atoi(args[0])
	if err != nil || numRows <= 0 {
		return 0, errors.Errorf("number of rows must be a positive integer, got %q", args[0])
	}
	return numRows, nil
}

// buildWeatherStationNameList reads the distinct station names of path in
// file order. A missing file yields builtinStations.
func buildWeatherStationNameList(opener FileOpener, path string) ([]string, error) {
	file, err := opener.Open(path)
	if os.IsNotExist(errors.Cause(err)) {
		logrus.WithField("path", path).Warn("station list not found, using the built-in list")
		return builtinStations, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open station list")
	}
	defer file.Close()

	var stationNames []string
	seen := map[string]bool{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		station, _, _ := strings.Cut(line, ";")
		if station == "" || seen[station] {
			continue
		}
		seen[station] = true
		stationNames = append(stationNames, station)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read station list %s", path)
	}
	if len(stationNames) == 0 {
		return nil, errors.Errorf("station list %s is empty", path)
	}
	return stationNames, nil
}

func estimateFileSize(weatherStationNames []string, numRowsToCreate int) string {
	totalNameBytes := 0
	for _, name := range weatherStationNames {
		totalNameBytes += len(name)
	}
	avgNameBytes := totalNameBytes / len(weatherStationNames)
	avgTempBytes := 4.400200100050025
	avgLineLength := avgNameBytes + int(avgTempBytes) + 2
	fileSize := numRowsToCreate * avgLineLength
	return fmt.Sprintf("Estimated max file size is: %s.", convertBytes(fileSize))
}

func convertBytes(num int) string {
	units := []string{"bytes", "KiB", "MiB", "GiB"}
	var i int
	for num >= 1024 && i < len(units)-1 {
		num /= 1024
		i++
	}
	return fmt.Sprintf("%d %s", num, units[i])
}

// randomTemp returns a value in [coldestTemp, hottestTemp], times ten.
func randomTemp(random Random) int64 {
	temp := random.Float64()*(hottestTemp-coldestTemp) + coldestTemp
	return int64(math.Round(temp * 10))
}

func buildTestData(weatherStationNames []string, numRowsToCreate int, out string, fileWriter FileWriter, random Random) (err error) {
	startTime := time.Now()
	log := logrus.WithFields(logrus.Fields{"path": out, "rows": numRowsToCreate})
	log.Info("building test data")

	file, err := fileWriter.Create(out)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = errors.Wrap(closeErr, "close output")
		}
	}()

	writer := bufio.NewWriter(file)
	line := make([]byte, 0, 128)
	for i := 0; i < numRowsToCreate; i += batchSize {
		end := min(i+batchSize, numRowsToCreate)
		for j := i; j < end; j++ {
			line = append(line[:0], weatherStationNames[random.Intn(len(weatherStationNames))]...)
			line = append(line, ';')
			line = fixedpoint.Append(line, randomTemp(random))
			line = append(line, '\n')
			if _, err := writer.Write(line); err != nil {
				return errors.Wrap(err, "write row")
			}
		}
		log.WithField("written", end).Debug("batch done")
	}
	if err := writer.Flush(); err != nil {
		return errors.Wrap(err, "flush output")
	}

	log.WithField("elapsed", time.Since(startTime)).Info("test data successfully written")
	return nil
}

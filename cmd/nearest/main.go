// Command nearest builds a quadtree from a vehicle positions file and prints
// the nearest vehicle to each query coordinate. It can also import a
// positions file into Postgres for the server to load from.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"vehiclefinder/internal/domain/entities"
	"vehiclefinder/internal/geo"
	"vehiclefinder/internal/logger"
	"vehiclefinder/internal/report"
	"vehiclefinder/internal/repository/datfile"
	"vehiclefinder/internal/repository/postgres"
)

// referenceCoordinates are queried when no --coord is given.
var referenceCoordinates = []entities.Location{
	{Latitude: 34.544909, Longitude: -102.10084},
	{Latitude: 32.345544, Longitude: -99.123124},
	{Latitude: 33.234235, Longitude: -100.21412},
	{Latitude: 35.195739, Longitude: -95.348899},
	{Latitude: 31.895839, Longitude: -97.789573},
	{Latitude: 32.895839, Longitude: -101.78957},
	{Latitude: 34.115839, Longitude: -100.22573},
	{Latitude: 32.335839, Longitude: -99.992232},
	{Latitude: 33.535339, Longitude: -94.792232},
	{Latitude: 32.234235, Longitude: -100.22222},
}

var (
	app      = kingpin.New("nearest", "Find the nearest vehicle to a set of coordinates.")
	logLevel = app.Flag("log-level", "Log level.").Default("warn").Envar("VF_LOG_LEVEL").String()

	queryCmd      = app.Command("query", "Build the index from a positions file and run queries.").Default()
	queryFile     = queryCmd.Flag("file", "Tab-delimited vehicle positions file.").Short('f').Default("VehiclePositions.dat").String()
	queryCoords   = queryCmd.Flag("coord", "Query coordinate as lat,long. Repeatable.").Short('q').Strings()
	queryMaxDepth = queryCmd.Flag("max-depth", "Maximum quadtree depth.").Default(strconv.Itoa(geo.DefaultMaxDepth)).Int()
	querySummary  = queryCmd.Flag("summary", "Print a build summary before the results.").Bool()

	importCmd         = app.Command("import", "Load a positions file into Postgres.")
	importFile        = importCmd.Flag("file", "Tab-delimited vehicle positions file.").Short('f').Default("VehiclePositions.dat").String()
	importPostgresURL = importCmd.Flag("postgres-url", "Postgres connection URL.").Envar("VF_POSTGRES_URL").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))
	logger.Setup(*logLevel, "text")

	ctx := context.Background()
	var err error
	switch command {
	case queryCmd.FullCommand():
		err = runQuery(ctx)
	case importCmd.FullCommand():
		err = runImport(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "nearest: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context) error {
	queries := referenceCoordinates
	if len(*queryCoords) > 0 {
		queries = make([]entities.Location, 0, len(*queryCoords))
		for _, raw := range *queryCoords {
			loc, err := parseCoordinate(raw)
			if err != nil {
				return err
			}
			queries = append(queries, loc)
		}
	}

	start := time.Now()
	positions, err := datfile.NewSource(*queryFile).Load(ctx)
	if err != nil {
		return err
	}
	root, stats := geo.BuildIndex(geo.WorldRect, positions, *queryMaxDepth)
	if stats.Dropped > 0 {
		logger.L().WithField("dropped", stats.Dropped).Warn("positions outside the world domain were skipped")
	}

	out := report.NewWriter(os.Stdout)
	if *querySummary {
		out.Summary(len(positions), stats, time.Since(start))
	}
	for _, q := range queries {
		x, y := q.XY()
		vehicle, _ := geo.FindNearest(root, x, y)
		out.Nearest(q, vehicle)
	}
	return out.Err()
}

func runImport(ctx context.Context) error {
	positions, err := datfile.NewSource(*importFile).Load(ctx)
	if err != nil {
		return err
	}

	repo, err := postgres.Open(ctx, *importPostgresURL)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := repo.Insert(ctx, positions); err != nil {
		return err
	}
	logger.L().WithField("target", repo.Describe()).Infof("imported %d positions", len(positions))
	return nil
}

// parseCoordinate parses "lat,long".
func parseCoordinate(raw string) (entities.Location, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return entities.Location{}, errors.Errorf("coordinate %q: want lat,long", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return entities.Location{}, errors.Wrapf(err, "coordinate %q: latitude", raw)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return entities.Location{}, errors.Wrapf(err, "coordinate %q: longitude", raw)
	}
	return entities.NewLocation(lat, lon), nil
}

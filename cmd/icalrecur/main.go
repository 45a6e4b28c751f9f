package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/cyp0633/icalrecur/caltime"
	"github.com/cyp0633/icalrecur/internal/config"
	"github.com/cyp0633/icalrecur/internal/xcal"
	"github.com/cyp0633/icalrecur/recurrence"
	"github.com/emersion/go-ical"
)

type flagConfig struct {
	configPath string
	from       string
	to         string
	days       int
	format     string
	timezone   string
	verbose    bool
}

func main() {
	flags := parseFlags()
	if err := run(flags, flag.Args(), os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "icalrecur:", err)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to config file")
	flag.StringVar(&cfg.from, "from", "", "Window start, YYYYMMDD or YYYYMMDDTHHMMSS[Z] (default: start of this week)")
	flag.StringVar(&cfg.to, "to", "", "Window end, exclusive (default: from plus -days)")
	flag.IntVar(&cfg.days, "days", 0, "Window length in days (overrides config if set)")
	flag.StringVar(&cfg.format, "format", "", "Output format: text or xml (overrides config if set)")
	flag.StringVar(&cfg.timezone, "tz", "", "Display timezone (overrides config if set)")
	flag.BoolVar(&cfg.verbose, "v", false, "Debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: icalrecur [flags] file.ics ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	return cfg
}

func run(flags flagConfig, paths []string, stdin io.Reader, stdout, stderr io.Writer) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.days > 0 {
		conf.WindowDays = flags.days
	}
	if flags.format != "" {
		conf.Format = flags.format
	}
	if flags.timezone != "" {
		conf.Timezone = flags.timezone
	}
	if flags.verbose {
		conf.LogLevel = "debug"
	}
	conf.Normalize()

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: conf.SlogLevel()}))

	if _, err := conf.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", conf.Timezone, err)
	}

	from, to, err := window(flags, conf, time.Now())
	if err != nil {
		return err
	}
	logger.Debug("effective config",
		"timezone", conf.Timezone,
		"format", conf.Format,
		"from", from.String(),
		"to", to.String(),
		"cache", conf.Engine.CacheEnabled,
		"max_empty_seeds", conf.Engine.MaxEmptySeeds)

	engine := recurrence.NewEngineWithConfig(conf.Engine, recurrence.WithLogger(logger))
	defer engine.Close()

	if len(paths) == 0 {
		paths = []string{"-"}
	}

	var occs []recurrence.Occurrence
	for _, path := range paths {
		found, err := expandFile(path, stdin, engine, logger, from, to)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		occs = append(occs, found...)
	}

	if conf.Timezone != "" {
		if occs, err = toDisplayZone(occs, caltime.NamedZone(conf.Timezone)); err != nil {
			return err
		}
	}
	if err := sortByStart(occs); err != nil {
		return err
	}

	logger.Info("expanded", "files", len(paths), "occurrences", len(occs))

	if conf.Format == config.FormatXML {
		return xcal.Write(stdout, occs)
	}
	return writeText(stdout, occs)
}

// window returns the query window. Without -from it starts at the
// beginning of the current week.
func window(flags flagConfig, conf *config.Config, now time.Time) (caltime.DateTime, caltime.DateTime, error) {
	var from caltime.DateTime
	if flags.from != "" {
		v, err := caltime.ParseValue(flags.from, conf.Timezone)
		if err != nil {
			return from, from, fmt.Errorf("-from: %w", err)
		}
		from = v
	} else {
		start := caltime.WeekStart(now, conf.WeekStartDay())
		from = caltime.Date(start.Year(), start.Month(), start.Day())
	}

	to := from.AddDays(conf.WindowDays)
	if flags.to != "" {
		v, err := caltime.ParseValue(flags.to, conf.Timezone)
		if err != nil {
			return from, from, fmt.Errorf("-to: %w", err)
		}
		to = v
	}
	return from, to, nil
}

func expandFile(path string, stdin io.Reader, engine *recurrence.Engine, logger *slog.Logger, from, to caltime.DateTime) ([]recurrence.Occurrence, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var out []recurrence.Occurrence
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}

		items, err := recurrence.ItemsFromCalendar(cal, nil)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			composer := recurrence.NewComposer(item, recurrence.WithEngine(engine), recurrence.WithLogger(logger))
			occs, err := composer.Occurrences(from, to)
			if err != nil {
				return nil, fmt.Errorf("item %s: %w", item.UID, err)
			}
			out = append(out, occs...)
		}
	}
	return out, nil
}

func toDisplayZone(occs []recurrence.Occurrence, zone caltime.Zone) ([]recurrence.Occurrence, error) {
	for i := range occs {
		if !occs[i].Start().HasTime() {
			continue
		}
		p, err := occs[i].Period.ToZone(zone)
		if err != nil {
			return nil, err
		}
		occs[i].Period = p
	}
	return occs, nil
}

func sortByStart(occs []recurrence.Occurrence) error {
	var sortErr error
	sort.SliceStable(occs, func(i, j int) bool {
		c, err := occs[i].Start().Compare(occs[j].Start())
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c < 0
	})
	return sortErr
}

func writeText(w io.Writer, occs []recurrence.Occurrence) error {
	for _, occ := range occs {
		summary := summaryOf(occ.Item.Component)
		if occ.Override != nil {
			if s := summaryOf(occ.Override.Component); s != "" {
				summary = s
			}
			summary += " (moved)"
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", occ.Period, occ.Item.UID, summary); err != nil {
			return err
		}
	}
	return nil
}

func summaryOf(comp *ical.Component) string {
	if comp == nil {
		return ""
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		return prop.Value
	}
	return ""
}

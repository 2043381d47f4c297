package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/search"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/stats"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	StatsCmdName  = "stats"
	StatsCmdShort = "Answer statistics questions offline"
	StatsCmdLong  = `Answer statistics questions straight from the dataset. No model is called.

Filters given with --where are exact, case-sensitive matches, e.g.
  carchat stats average --field price --where brand=Toyota --where city=Riyadh`
)

var (
	StatsCmd = &cobra.Command{
		Use:   StatsCmdName,
		Short: StatsCmdShort,
		Long:  StatsCmdLong,
	}
)

func init() {
	count := &cobra.Command{
		Use:   "count",
		Short: "Count cars per value of a field",
		Args:  cobra.NoArgs,
		RunE:  withEngine(countCmdFunc),
	}
	count.Flags().String("field", "city", "field to count, or several comma-separated")
	count.Flags().String("city", "", "only count cars in this city (case-insensitive)")

	extreme := &cobra.Command{
		Use:   "extreme",
		Short: "Show the car with the lowest or highest value of a numeric field",
		Args:  cobra.NoArgs,
		RunE:  withEngine(extremeCmdFunc),
	}
	extreme.Flags().String("field", "mileage", "numeric field")
	extreme.Flags().String("mode", string(stats.ModeMin), "min or max")
	extreme.Flags().StringToString("where", nil, "field=value filter, repeatable")

	average := &cobra.Command{
		Use:   "average",
		Short: "Average a numeric field",
		Args:  cobra.NoArgs,
		RunE:  withEngine(averageCmdFunc),
	}
	average.Flags().String("field", "price", "numeric field")
	average.Flags().StringToString("where", nil, "field=value filter, repeatable")

	priceRange := &cobra.Command{
		Use:   "price-range",
		Short: "List cars priced between --min and --max inclusive",
		Args:  cobra.NoArgs,
		RunE:  withEngine(priceRangeCmdFunc),
	}
	priceRange.Flags().Float64("min", 0, "lowest price")
	priceRange.Flags().Float64("max", 0, "highest price")
	priceRange.Flags().StringToString("where", nil, "field=value filter, repeatable")
	_ = priceRange.MarkFlagRequired("max")

	StatsCmd.AddCommand(count, extreme, average, priceRange)
}

type statsFunc func(out io.Writer, flags *pflag.FlagSet, e *stats.Engine) error

func withEngine(fn statsFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		return fn(cmd.OutOrStdout(), cmd.Flags(), a.stats)
	}
}

func countCmdFunc(out io.Writer, flags *pflag.FlagSet, e *stats.Engine) error {
	names, _ := flags.GetString("field")
	var fields []dal.Field
	for _, name := range strings.Split(names, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		f, err := dal.ParseField(name)
		if err != nil {
			return err
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return errors.New("field is required")
	}

	city, _ := flags.GetString("city")
	var tables map[dal.Field][]stats.Count
	if city == "" {
		tables = e.CountFieldsSummary(fields...)
	} else {
		tables = make(map[dal.Field][]stats.Count, len(fields))
		for _, f := range fields {
			tables[f] = e.CountByFieldInCity(f, city)
		}
	}

	for i, f := range fields {
		if len(fields) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%s:\n", f)
		}
		counts := tables[f]
		if len(counts) == 0 {
			fmt.Fprintln(out, search.NoMatches)
			continue
		}
		for _, c := range counts {
			fmt.Fprintf(out, "%s: %d\n", c.Value, c.Count)
		}
	}
	return nil
}

func extremeCmdFunc(out io.Writer, flags *pflag.FlagSet, e *stats.Engine) error {
	field, err := numericField(flags)
	if err != nil {
		return err
	}
	m, _ := flags.GetString("mode")
	mode := stats.Mode(m)
	if mode != stats.ModeMin && mode != stats.ModeMax {
		return fmt.Errorf("mode must be min or max: %q", m)
	}
	filters, err := equalsFlag(flags)
	if err != nil {
		return err
	}
	car, ok := e.ExtremeValue(field, mode, filters)
	if !ok {
		fmt.Fprintln(out, search.NoMatches)
		return nil
	}
	fmt.Fprintln(out, search.FormatCar(car))
	return nil
}

func averageCmdFunc(out io.Writer, flags *pflag.FlagSet, e *stats.Engine) error {
	field, err := numericField(flags)
	if err != nil {
		return err
	}
	filters, err := equalsFlag(flags)
	if err != nil {
		return err
	}
	avg, ok := e.AverageValue(field, filters)
	if !ok {
		fmt.Fprintln(out, search.NoMatches)
		return nil
	}
	switch field {
	case dal.FieldPrice:
		fmt.Fprintln(out, search.FormatPrice(avg))
	case dal.FieldMileage:
		fmt.Fprintln(out, search.FormatMileage(avg))
	default:
		fmt.Fprintln(out, humanize.CommafWithDigits(avg, 2))
	}
	return nil
}

func priceRangeCmdFunc(out io.Writer, flags *pflag.FlagSet, e *stats.Engine) error {
	lo, _ := flags.GetFloat64("min")
	hi, _ := flags.GetFloat64("max")
	if lo < 0 || hi < lo {
		return fmt.Errorf("invalid price range [%v, %v]", lo, hi)
	}
	filters, err := equalsFlag(flags)
	if err != nil {
		return err
	}
	cars := e.CarsInPriceRange(lo, hi, filters)
	fmt.Fprintln(out, search.Block(cars, -1, search.FormatLine))
	return nil
}

func numericField(flags *pflag.FlagSet) (dal.Field, error) {
	s, _ := flags.GetString("field")
	f, err := dal.ParseField(s)
	if err != nil {
		return "", err
	}
	if !f.Numeric() {
		return "", errors.New("field must be numeric: " + s)
	}
	return f, nil
}

func equalsFlag(flags *pflag.FlagSet) (stats.Equals, error) {
	where, _ := flags.GetStringToString("where")
	if len(where) == 0 {
		return nil, nil
	}
	eq := make(stats.Equals, len(where))
	for k, v := range where {
		f, err := dal.ParseField(k)
		if err != nil {
			return nil, err
		}
		eq[f] = v
	}
	return eq, nil
}

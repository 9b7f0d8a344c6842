package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/tomyedwab/sqlite3helpers/database"
	"github.com/tomyedwab/sqlite3helpers/npy"
)

type options struct {
	DB  string `short:"d" long:"db" env:"ARRAYDB_DB" default:"arrays.db" description:"path to the SQLite database"`
	Dbg bool   `long:"dbg" env:"ARRAYDB_DBG" description:"debug mode"`

	ExistsCmd struct {
		PositionalArgs struct {
			Table string `positional-arg-name:"table" description:"table to look for"`
		} `positional-args:"yes" required:"yes"`
	} `command:"exists" description:"check whether a table exists"`

	PutCmd struct {
		Shape string `long:"shape" description:"comma separated shape, () for a scalar; one dimension if empty"`
		DType string `long:"dtype" default:"f8" choice:"f8" choice:"f4" choice:"i8" choice:"i4" choice:"b1" description:"element type"`

		PositionalArgs struct {
			Table  string   `positional-arg-name:"table" description:"table to insert into, created if missing"`
			Column string   `positional-arg-name:"column" description:"array column"`
			Values []string `positional-arg-name:"values" description:"array elements in row-major order"`
		} `positional-args:"yes" required:"yes"`
	} `command:"put" description:"store an array in a new row"`

	ShowCmd struct {
		PositionalArgs struct {
			Table  string `positional-arg-name:"table" description:"table to read"`
			Column string `positional-arg-name:"column" description:"array column"`
		} `positional-args:"yes" required:"yes"`
	} `command:"show" description:"print the arrays stored in a column"`
}

var revision = "latest"

var exitFunc = os.Exit

func main() {
	fmt.Printf("arraydb %s\n", revision)
	if err := runCommand(os.Args[1:], os.Stdout); err != nil {
		log.Printf("[WARN] %v", err)
		exitFunc(1)
	}
}

func runCommand(args []string, out io.Writer) error {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.ParseArgs(args); err != nil {
		return err
	}
	setupLog(opts.Dbg)
	database.SetLogger(lgr.Default())
	return run(p, opts, out)
}

func run(p *flags.Parser, opts options, out io.Writer) error {
	if p.Active == nil {
		return errors.New("no command given")
	}

	switch p.Active.Name {
	case "exists":
		return existsCmd(opts, out)
	case "put":
		return putCmd(opts, out)
	case "show":
		return showCmd(opts, out)
	}
	return fmt.Errorf("unknown command %q", p.Active.Name)
}

func existsCmd(opts options, out io.Writer) error {
	table, err := database.ScrubTableName(opts.ExistsCmd.PositionalArgs.Table)
	if err != nil {
		return err
	}
	log.Printf("[INFO] exists command, table=%s", table)

	db, err := database.Connect(opts.DB)
	if err != nil {
		return fmt.Errorf("can't open database: %w", err)
	}
	defer db.Close()

	ok, err := database.TableExists(db, table)
	if err != nil {
		return fmt.Errorf("can't check table %s: %w", table, err)
	}
	fmt.Fprintf(out, "%s: %v\n", table, ok)
	return nil
}

func putCmd(opts options, out io.Writer) error {
	args := opts.PutCmd.PositionalArgs
	table, err := database.ScrubTableName(args.Table)
	if err != nil {
		return err
	}
	column, err := database.ScrubTableName(args.Column)
	if err != nil {
		return fmt.Errorf("bad column name: %w", err)
	}
	log.Printf("[INFO] put command, table=%s, column=%s, dtype=%s, shape=%q", table, column, opts.PutCmd.DType, opts.PutCmd.Shape)

	arr, err := buildArray(opts.PutCmd.DType, args.Values, opts.PutCmd.Shape)
	if err != nil {
		return fmt.Errorf("can't build array: %w", err)
	}

	db, err := database.Connect(opts.DB)
	if err != nil {
		return fmt.Errorf("can't open database: %w", err)
	}
	defer db.Close()

	schema := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, %s %s)", table, column, database.ArrayTypeName)
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("can't create table %s: %w", table, err)
	}
	res, err := db.Exec(fmt.Sprintf("INSERT INTO %s (%s) VALUES (?)", table, column), arr)
	if err != nil {
		return fmt.Errorf("can't insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "inserted %s as row %d\n", arr, id)
	return nil
}

func showCmd(opts options, out io.Writer) error {
	args := opts.ShowCmd.PositionalArgs
	table, err := database.ScrubTableName(args.Table)
	if err != nil {
		return err
	}
	column, err := database.ScrubTableName(args.Column)
	if err != nil {
		return fmt.Errorf("bad column name: %w", err)
	}
	log.Printf("[INFO] show command, table=%s, column=%s", table, column)

	// Column-name decoding reads the blobs even if the column was not
	// declared as an array.
	db, err := database.Connect(opts.DB, database.WithDetectTypes(database.ParseDeclTypes|database.ParseColNames))
	if err != nil {
		return fmt.Errorf("can't open database: %w", err)
	}
	defer db.Close()

	ok, err := database.TableExists(db, table)
	if err != nil {
		return fmt.Errorf("can't check table %s: %w", table, err)
	}
	if !ok {
		return fmt.Errorf("table %s does not exist", table)
	}

	query := fmt.Sprintf(`SELECT rowid, %[1]s AS "%[1]s [%[2]s]" FROM %[3]s ORDER BY rowid`, column, database.ArrayTypeName, table)
	rows, err := db.Query(query)
	if err != nil {
		return fmt.Errorf("can't read %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			arr *npy.Array
		)
		if err := rows.Scan(&id, &arr); err != nil {
			return fmt.Errorf("can't scan row: %w", err)
		}
		if arr == nil {
			fmt.Fprintf(out, "%d\tNULL\n", id)
			continue
		}
		fmt.Fprintf(out, "%d\t%s\t%s\n", id, arr, formatValues(arr))
	}
	return rows.Err()
}

// parseShape returns the dimensions in s and whether s names a scalar.
func parseShape(s string) ([]int, bool, error) {
	s = strings.TrimSpace(s)
	if s == "()" {
		return nil, true, nil
	}
	s = strings.Trim(s, "()")
	if s == "" {
		return nil, false, nil
	}
	var shape []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return nil, false, fmt.Errorf("bad dimension %q", part)
		}
		shape = append(shape, d)
	}
	return shape, false, nil
}

func buildArray(dtype string, raw []string, shapeSpec string) (*npy.Array, error) {
	shape, scalar, err := parseShape(shapeSpec)
	if err != nil {
		return nil, err
	}

	switch dtype {
	case "f8":
		return parseArray(raw, shape, scalar, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
	case "f4":
		return parseArray(raw, shape, scalar, func(s string) (float32, error) {
			v, err := strconv.ParseFloat(s, 32)
			return float32(v), err
		})
	case "i8":
		return parseArray(raw, shape, scalar, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
	case "i4":
		return parseArray(raw, shape, scalar, func(s string) (int32, error) {
			v, err := strconv.ParseInt(s, 10, 32)
			return int32(v), err
		})
	case "b1":
		return parseArray(raw, shape, scalar, strconv.ParseBool)
	}
	return nil, fmt.Errorf("unsupported dtype %q", dtype)
}

func parseArray[T npy.Element](raw []string, shape []int, scalar bool, parse func(string) (T, error)) (*npy.Array, error) {
	vals := make([]T, len(raw))
	for i, s := range raw {
		v, err := parse(s)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", s, err)
		}
		vals[i] = v
	}
	if scalar {
		if len(vals) != 1 {
			return nil, fmt.Errorf("a scalar takes one value, got %d", len(vals))
		}
		return npy.Scalar(vals[0]), nil
	}
	return npy.New(vals, shape...)
}

func formatValues(a *npy.Array) string {
	var (
		v   any
		err error
	)
	switch fmt.Sprintf("%c%d", a.DType.Kind, a.DType.ItemSize) {
	case "b1":
		v, err = npy.Values[bool](a)
	case "i1":
		v, err = npy.Values[int8](a)
	case "i2":
		v, err = npy.Values[int16](a)
	case "i4":
		v, err = npy.Values[int32](a)
	case "i8":
		v, err = npy.Values[int64](a)
	case "u1":
		v, err = npy.Values[uint8](a)
	case "u2":
		v, err = npy.Values[uint16](a)
	case "u4":
		v, err = npy.Values[uint32](a)
	case "u8":
		v, err = npy.Values[uint64](a)
	case "f4":
		v, err = npy.Values[float32](a)
	case "f8":
		v, err = npy.Values[float64](a)
	case "c8":
		v, err = npy.Values[complex64](a)
	case "c16":
		v, err = npy.Values[complex128](a)
	default:
		return fmt.Sprintf("<%d bytes>", len(a.Data))
	}
	if err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprint(v)
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

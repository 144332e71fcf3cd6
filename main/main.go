// Command inspect validates a binary image against a TOML-described
// shape and prints a JSON report of the result.
//
//	inspect -shape record.toml -in record.bin[.zst] [-v]
//
// The shape file declares a struct field by field:
//
//	name = "record"
//
//	[[fields]]
//	name = "ID"
//	kind = "uint64"
//
//	[[fields]]
//	name = "Tags"
//	kind = "[]uint32"
//
// Kinds are the fixed-size Go primitives plus char, string, cstring,
// osstring, path, ordering and fpcategory; "[]" and "*" prefixes nest.
// Images ending in .zst are decompressed into a fresh buffer first.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/rawbytedev/flatview"
)

type shapeConfig struct {
	Name   string        `toml:"name"`
	Fields []fieldConfig `toml:"fields"`
}

type fieldConfig struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
}

type report struct {
	Shape        string        `json:"shape"`
	Image        string        `json:"image"`
	Bytes        int           `json:"bytes"`
	Valid        bool          `json:"valid"`
	Error        string        `json:"error,omitempty"`
	Reservations []reservation `json:"reservations"`
	Value        any           `json:"value,omitempty"`
}

type reservation struct {
	Offset uint64 `json:"offset"`
	Bytes  uint64 `json:"bytes"`
	Count  uint64 `json:"count"`
	Align  uint64 `json:"align"`
}

func main() {
	shapePath := flag.String("shape", "", "TOML shape description")
	imagePath := flag.String("in", "", "binary image to validate (.zst is decompressed)")
	verbose := flag.Bool("v", false, "trace every reservation")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.TraceLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}
	if *shapePath == "" || *imagePath == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*shapePath, *imagePath, log); err != nil {
		log.Fatal().Err(err).Msg("inspect failed")
	}
}

func run(shapePath, imagePath string, log zerolog.Logger) error {
	var cfg shapeConfig
	if _, err := toml.DecodeFile(shapePath, &cfg); err != nil {
		return fmt.Errorf("shape %s: %w", shapePath, err)
	}
	typ, err := buildShape(cfg)
	if err != nil {
		return err
	}

	buf, err := loadImage(imagePath)
	if err != nil {
		return err
	}
	log.Info().Str("shape", cfg.Name).Int("bytes", len(buf)).Msg("validating image")

	rep := report{
		Shape:        cfg.Name,
		Image:        imagePath,
		Bytes:        len(buf),
		Reservations: []reservation{},
	}
	opts := flatview.Options{
		Logger: &log,
		Observer: func(r flatview.Reservation) {
			rep.Reservations = append(rep.Reservations, reservation{
				Offset: uint64(r.Offset),
				Bytes:  uint64(r.Bytes),
				Count:  uint64(r.Count),
				Align:  uint64(r.Align),
			})
		},
	}
	view, err := flatview.DecodeValueWith(buf, typ, opts)
	if err != nil {
		rep.Error = err.Error()
	} else {
		rep.Valid = true
		rep.Value = view
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// buildShape assembles the reflect.Type described by the config.
func buildShape(cfg shapeConfig) (reflect.Type, error) {
	if len(cfg.Fields) == 0 {
		return nil, errors.New("shape has no fields")
	}
	fields := make([]reflect.StructField, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f.Name == "" || !unicode.IsUpper(rune(f.Name[0])) {
			return nil, fmt.Errorf("field %q: name must be exported", f.Name)
		}
		t, err := kindType(f.Kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields = append(fields, reflect.StructField{Name: f.Name, Type: t})
	}
	return reflect.StructOf(fields), nil
}

var baseKinds = map[string]reflect.Type{
	"bool":       reflect.TypeOf((*bool)(nil)).Elem(),
	"int8":       reflect.TypeOf((*int8)(nil)).Elem(),
	"int16":      reflect.TypeOf((*int16)(nil)).Elem(),
	"int32":      reflect.TypeOf((*int32)(nil)).Elem(),
	"int64":      reflect.TypeOf((*int64)(nil)).Elem(),
	"int":        reflect.TypeOf((*int)(nil)).Elem(),
	"uint8":      reflect.TypeOf((*uint8)(nil)).Elem(),
	"uint16":     reflect.TypeOf((*uint16)(nil)).Elem(),
	"uint32":     reflect.TypeOf((*uint32)(nil)).Elem(),
	"uint64":     reflect.TypeOf((*uint64)(nil)).Elem(),
	"uint":       reflect.TypeOf((*uint)(nil)).Elem(),
	"float32":    reflect.TypeOf((*float32)(nil)).Elem(),
	"float64":    reflect.TypeOf((*float64)(nil)).Elem(),
	"char":       reflect.TypeOf((*flatview.Char)(nil)).Elem(),
	"string":     reflect.TypeOf((*string)(nil)).Elem(),
	"cstring":    reflect.TypeOf((*flatview.CString)(nil)).Elem(),
	"osstring":   reflect.TypeOf((*flatview.OSString)(nil)).Elem(),
	"path":       reflect.TypeOf((*flatview.Path)(nil)).Elem(),
	"ordering":   reflect.TypeOf((*flatview.Ordering)(nil)).Elem(),
	"fpcategory": reflect.TypeOf((*flatview.FpCategory)(nil)).Elem(),
}

func kindType(kind string) (reflect.Type, error) {
	switch {
	case strings.HasPrefix(kind, "[]"):
		elem, err := kindType(kind[2:])
		if err != nil {
			return nil, err
		}
		return reflect.SliceOf(elem), nil
	case strings.HasPrefix(kind, "*"):
		elem, err := kindType(kind[1:])
		if err != nil {
			return nil, err
		}
		return reflect.PointerTo(elem), nil
	}
	if t, ok := baseKinds[kind]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

// loadImage reads the image file, decompressing zstd images into a
// fresh buffer so the validator always works over plain bytes.
func loadImage(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return raw, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(raw, nil)
}

package waves

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// levelFile is the on-disk shape of a level. Intervals accept Go duration
// strings ("800ms") or plain numbers of seconds (1.5).
type levelFile struct {
	Name           string               `json:"name" yaml:"name"`
	PathLength     float64              `json:"path_length" yaml:"path_length"`
	Enemies        map[string]EnemyKind `json:"enemies" yaml:"enemies"`
	Waves          []Wave               `json:"waves" yaml:"waves"`
	SpawnIntervals []interval           `json:"spawn_intervals" yaml:"spawn_intervals"`
}

type interval time.Duration

func parseInterval(raw string) (interval, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		return interval(d), nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid spawn interval %q", raw)
	}
	return interval(time.Duration(secs * float64(time.Second))), nil
}

func (i *interval) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseInterval(node.Value)
	if err != nil {
		return err
	}
	*i = v
	return nil
}

func (i *interval) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	v, err := parseInterval(raw)
	if err != nil {
		return err
	}
	*i = v
	return nil
}

func (f *levelFile) level() *Level {
	l := &Level{
		Name:           f.Name,
		PathLength:     f.PathLength,
		Enemies:        f.Enemies,
		Waves:          f.Waves,
		SpawnIntervals: make([]time.Duration, len(f.SpawnIntervals)),
	}
	if l.Enemies == nil {
		l.Enemies = make(map[string]EnemyKind)
	}
	for name, kind := range l.Enemies {
		if kind.Name == "" {
			kind.Name = name
			l.Enemies[name] = kind
		}
	}
	for i, v := range f.SpawnIntervals {
		l.SpawnIntervals[i] = time.Duration(v)
	}
	return l
}

// LoadJSON decodes a level from JSON. The result is not validated; the engine
// validates on Initialize.
func LoadJSON(r io.Reader) (*Level, error) {
	var f levelFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode level json: %w", err)
	}
	return f.level(), nil
}

// LoadYAML decodes a level from YAML.
func LoadYAML(r io.Reader) (*Level, error) {
	var f levelFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode level yaml: %w", err)
	}
	return f.level(), nil
}

// LoadFile picks the decoder from the file extension.
func LoadFile(path string) (*Level, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open level: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(file)
	case ".json":
		return LoadJSON(file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

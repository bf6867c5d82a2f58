package preset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Resolution is a named frame size.
type Resolution struct {
	Name   string
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d)", r.Name, r.Width, r.Height)
}

var resolutions = map[string]Resolution{
	"sd":       {"sd", 640, 480},
	"hd":       {"hd", 1280, 720},
	"full-hd":  {"full-hd", 1920, 1080},
	"qhd":      {"qhd", 2560, 1440},
	"wqhd":     {"wqhd", 2560, 1600},
	"uhd":      {"uhd", 3840, 2160},
	"four-k":   {"four-k", 3840, 2160},
	"eight-k":  {"eight-k", 7680, 4320},
	"retina":   {"retina", 2048, 1536},
	"svga":     {"svga", 800, 600},
	"xga":      {"xga", 1024, 768},
	"wxga":     {"wxga", 1280, 800},
	"hd-ready": {"hd-ready", 1366, 768},
	"wvga":     {"wvga", 800, 480},
	"qvga":     {"qvga", 320, 240},
	"cga":      {"cga", 640, 200},
}

// DefaultResolution is used when neither a resolution nor dimensions are given.
var DefaultResolution = resolutions["sd"]

// LookupResolution returns the named resolution. Names are case-insensitive
// and accept underscores for dashes ("full_hd").
func LookupResolution(name string) (Resolution, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	r, ok := resolutions[key]
	if !ok {
		return Resolution{}, fmt.Errorf("unknown resolution '%s' (known: %s)", name, strings.Join(ResolutionNames(), ", "))
	}
	return r, nil
}

// Resolutions returns every named resolution ordered by pixel count, then name.
func Resolutions() []Resolution {
	list := make([]Resolution, 0, len(resolutions))
	for _, r := range resolutions {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		pi, pj := list[i].Width*list[i].Height, list[j].Width*list[j].Height
		if pi != pj {
			return pi < pj
		}
		return list[i].Name < list[j].Name
	})
	return list
}

// ResolutionNames returns the resolution names in sorted order.
func ResolutionNames() []string {
	names := make([]string, 0, len(resolutions))
	for name := range resolutions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseDimensions parses "W,H" or "WxH" into positive integers.
func ParseDimensions(s string) (width, height int, err error) {
	s = strings.TrimSpace(s)
	sep := ","
	if !strings.Contains(s, sep) {
		sep = "x"
	}
	parts := strings.Split(strings.ToLower(s), sep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid dimensions '%s': want WIDTH,HEIGHT or WIDTHxHEIGHT", s)
	}
	width, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in '%s': %w", s, err)
	}
	height, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in '%s': %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid dimensions '%s': width and height must be positive", s)
	}
	return width, height, nil
}

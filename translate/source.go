package translate

import "fmt"

// Source selects the translation direction understood by the server.
type Source string

const (
	Hindi         Source = "hi"
	Garhwali      Source = "gbm"
	English       Source = "en"
	GarhwaliToEng Source = "gbm_to_en"
	DefaultSource        = Hindi
)

var sources = []struct {
	code  Source
	label string
}{
	{Hindi, "Hindi → Garhwali"},
	{Garhwali, "Garhwali → Hindi"},
	{English, "English → Garhwali"},
	{GarhwaliToEng, "Garhwali → English"},
}

func Sources() []Source {
	out := make([]Source, len(sources))
	for i, s := range sources {
		out[i] = s.code
	}
	return out
}

func ParseSource(code string) (Source, error) {
	for _, s := range sources {
		if string(s.code) == code {
			return s.code, nil
		}
	}
	return "", fmt.Errorf("unknown source language %q", code)
}

func (s Source) Label() string {
	for _, e := range sources {
		if e.code == s {
			return e.label
		}
	}
	return string(s)
}

// Next returns the source after s in selector order, wrapping around.
func (s Source) Next() Source {
	for i, e := range sources {
		if e.code == s {
			return sources[(i+1)%len(sources)].code
		}
	}
	return DefaultSource
}

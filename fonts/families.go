package fonts

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
)

// Family is a generic font family. Every family is backed by embedded Go
// fonts so output never depends on fonts installed on the machine.
type Family string

const (
	Sans  Family = "sans"
	Serif Family = "serif"
	Mono  Family = "mono"
)

// ParseFamily maps a CSS-like family name onto a generic family. Unknown
// names fall back to Sans.
func ParseFamily(name string) Family {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "":
		return Sans
	case strings.Contains(n, "mono"), strings.Contains(n, "courier"), strings.Contains(n, "code"):
		return Mono
	case strings.Contains(n, "sans"), strings.Contains(n, "helvetica"), strings.Contains(n, "arial"):
		return Sans
	case strings.Contains(n, "serif"), strings.Contains(n, "times"), strings.Contains(n, "georgia"):
		return Serif
	}
	return Sans
}

type variant struct {
	name string
	data []byte
}

var families = map[Family][4]variant{
	Sans: {
		{"GoRegular", goregular.TTF},
		{"GoBold", gobold.TTF},
		{"GoItalic", goitalic.TTF},
		{"GoBoldItalic", gobolditalic.TTF},
	},
	Serif: {
		{"GoMedium", gomedium.TTF},
		{"GoBold", gobold.TTF},
		{"GoMediumItalic", gomediumitalic.TTF},
		{"GoBoldItalic", gobolditalic.TTF},
	},
	Mono: {
		{"GoMono", gomono.TTF},
		{"GoMonoBold", gomonobold.TTF},
		{"GoMonoItalic", gomonoitalic.TTF},
		{"GoMonoBoldItalic", gomonobolditalic.TTF},
	},
}

// SignatureFonts lists the decorative faces a signature profile can pick.
var SignatureFonts = []string{"flourish", "formal", "bold-script", "small-caps"}

var signatures = map[string]variant{
	"flourish":    {"GoItalic", goitalic.TTF},
	"formal":      {"GoMediumItalic", gomediumitalic.TTF},
	"bold-script": {"GoBoldItalic", gobolditalic.TTF},
	"small-caps":  {"GoSmallcapsItalic", gosmallcapsitalic.TTF},
}

// SignatureFontFor picks a signature font id for key. The same key always
// yields the same font.
func SignatureFontFor(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return SignatureFonts[int(sum[0])%len(SignatureFonts)]
}

// Registry parses faces on first use and shares them afterwards. It is
// safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	faces map[string]*Face
}

func NewRegistry() *Registry {
	return &Registry{faces: make(map[string]*Face)}
}

func (r *Registry) load(v variant) (*Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[v.name]; ok {
		return f, nil
	}
	f, err := Parse(v.name, v.data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", v.name, err)
	}
	r.faces[v.name] = f
	return f, nil
}

// Face returns the face for a family and style.
func (r *Registry) Face(family Family, bold, italic bool) (*Face, error) {
	vs, ok := families[family]
	if !ok {
		vs = families[Sans]
	}
	idx := 0
	if bold {
		idx |= 1
	}
	if italic {
		idx |= 2
	}
	return r.load(vs[idx])
}

// Signature returns the decorative face for a signature font id. Unknown
// ids are mapped deterministically onto the known faces.
func (r *Registry) Signature(fontID string) (*Face, error) {
	v, ok := signatures[fontID]
	if !ok {
		v = signatures[SignatureFontFor(fontID)]
	}
	return r.load(v)
}

package services

import (
	"context"
	"errors"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventgallery/gallery/storage"
	"github.com/eventgallery/gallery/utils"
)

// namingListCap bounds the collision listing. Past it, suffixes above the
// highest listed one can be missed.
const namingListCap = 1000

const anonymousUser = "anonymous"

// SplitFileName reduces name to its last path segment and splits it at the
// final "." into stem and extension. Trailing dots are dropped first, so ext
// is empty only when the stem has no dot and a resolved key splits back into
// the stem it was built from.
func SplitFileName(name string) (stem, ext string) {
	base := strings.TrimRight(path.Base(strings.ReplaceAll(name, `\`, "/")), ".")
	if base == "/" {
		base = ""
	}
	i := strings.LastIndex(base, ".")
	if i < 0 {
		return base, ""
	}
	return base[:i], base[i+1:]
}

// SanitizeUserName keeps only [A-Za-z0-9_-], in order. A blank or fully
// stripped name becomes "anonymous".
func SanitizeUserName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, name)
	if clean == "" {
		return anonymousUser
	}
	return clean
}

// ResolveStem picks the stem for a new object given the stems already stored
// under the candidate's prefix. The bare candidate wins when it is free;
// otherwise the result is candidate_(N+1) for the highest observed N.
func ResolveStem(existing []string, candidate string) string {
	if !slices.Contains(existing, candidate) {
		return candidate
	}
	highest := 0
	for _, stem := range existing {
		digits, ok := strings.CutPrefix(stem, candidate+"_")
		if !ok || !isDigits(digits) {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err == nil && n > highest {
			highest = n
		}
	}
	return candidate + "_" + strconv.Itoa(highest+1)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ObjectName is a resolved storage name: Prefix + Stem + "." + Ext.
type ObjectName struct {
	Prefix string
	Stem   string
	Ext    string
}

// Key returns the full storage key. An empty extension adds no trailing dot.
func (n ObjectName) Key() string {
	if n.Ext == "" {
		return n.Prefix + n.Stem
	}
	return n.Prefix + n.Stem + "." + n.Ext
}

// WithSuffix returns the name with "_"+suffix appended to the stem.
func (n ObjectName) WithSuffix(suffix string) ObjectName {
	n.Stem += "_" + suffix
	return n
}

// Namer resolves collision-free keys within one namespace prefix by listing
// before writing. Two concurrent uploads of the same (user, file name) can
// both list before either writes and resolve the same key; the store has no
// compare-and-swap for listings, so that race is accepted here and only
// conditional writes (storage.PutOptions.IfAbsent) can detect it.
type Namer struct {
	store  storage.Gateway
	prefix string
	now    func() time.Time
	logger *zap.SugaredLogger
}

func NewNamer(store storage.Gateway, prefix string, logger *zap.SugaredLogger) *Namer {
	return &Namer{store: store, prefix: prefix, now: time.Now, logger: logger}
}

// Resolve maps (fileName, userName) to an ObjectName under the namer's prefix.
// When the listing fails the name falls back to a millisecond timestamp
// suffix, trading readability for availability.
func (n *Namer) Resolve(ctx context.Context, fileName, userName string) (ObjectName, error) {
	stem, ext := SplitFileName(fileName)
	user := SanitizeUserName(userName)
	candidate := user + "_" + stem

	listing, err := n.store.List(ctx, n.prefix+candidate, namingListCap)
	if err != nil {
		if errors.Is(err, utils.ErrConfiguration) {
			return ObjectName{}, err
		}
		fallback := ObjectName{
			Prefix: n.prefix,
			Stem:   candidate + "_" + strconv.FormatInt(n.now().UnixMilli(), 10),
			Ext:    ext,
		}
		n.logger.Warnw("duplicate check failed, falling back to timestamp name",
			"candidate", candidate, "key", fallback.Key(), "error", err)
		return fallback, nil
	}
	if listing.Truncated {
		n.logger.Warnw("duplicate check listing truncated", "candidate", candidate, "cap", namingListCap)
	}

	existing := make([]string, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		s, _ := SplitFileName(obj.Key)
		existing = append(existing, s)
	}
	n.logger.Debugw("duplicate check result", "candidate", candidate, "existing_files_count", len(existing))

	return ObjectName{Prefix: n.prefix, Stem: ResolveStem(existing, candidate), Ext: ext}, nil
}

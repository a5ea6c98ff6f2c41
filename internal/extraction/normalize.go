// Package extraction turns loosely shaped provider output into canonical competition fields and
// merges providers with first-writer-wins precedence.
package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jonathan/competition-radar/internal/types"
)

// keyword maps a lowercase token found in free text to a vocabulary value.
type keyword struct {
	token string
	value string
}

// Keyword tables are checked in order; the first hit wins for a given token.
var (
	categoryKeywords = []keyword{
		{"olimpiade", "Academic"}, {"olympiad", "Academic"}, {"akademik", "Academic"},
		{"academic", "Academic"}, {"cerdas cermat", "Academic"}, {"kuis", "Academic"},
		{"quiz", "Academic"}, {"matematika", "Academic"}, {"math", "Academic"},
		{"sains", "Science"}, {"science", "Science"}, {"ipa", "Science"}, {"fisika", "Science"},
		{"physics", "Science"}, {"kimia", "Science"}, {"chemistry", "Science"},
		{"biologi", "Science"}, {"biology", "Science"}, {"penelitian", "Science"},
		{"research", "Science"}, {"karya tulis ilmiah", "Science"}, {"kti", "Science"},
		{"teknologi", "Technology"}, {"technology", "Technology"}, {"tech", "Technology"},
		{"informatika", "Technology"}, {"hackathon", "Technology"}, {"coding", "Technology"},
		{"programming", "Technology"}, {"pemrograman", "Technology"}, {"robot", "Technology"},
		{"software", "Technology"}, {"cyber", "Technology"}, {"ctf", "Technology"},
		{"data", "Technology"}, {"web", "Technology"}, {"aplikasi", "Technology"},
		{"app", "Technology"}, {"ai", "Technology"}, {"it", "Technology"},
		{"bisnis", "Business"}, {"business", "Business"}, {"wirausaha", "Business"},
		{"kewirausahaan", "Business"}, {"entrepreneur", "Business"}, {"startup", "Business"},
		{"marketing", "Business"}, {"pemasaran", "Business"}, {"ekonomi", "Business"},
		{"economics", "Business"}, {"akuntansi", "Business"}, {"accounting", "Business"},
		{"keuangan", "Business"}, {"finance", "Business"},
		{"desain", "Design"}, {"design", "Design"}, {"poster", "Design"}, {"logo", "Design"},
		{"infografis", "Design"}, {"infographic", "Design"}, {"ilustrasi", "Design"},
		{"illustration", "Design"}, {"ui", "Design"}, {"ux", "Design"},
		{"seni", "Art"}, {"art", "Art"}, {"lukis", "Art"}, {"painting", "Art"}, {"tarian", "Art"},
		{"dance", "Art"}, {"musik", "Art"}, {"music", "Art"}, {"menyanyi", "Art"},
		{"singing", "Art"}, {"vokal", "Art"}, {"film", "Art"}, {"fotografi", "Art"},
		{"photography", "Art"}, {"video", "Art"},
		{"menulis", "Writing"}, {"writing", "Writing"}, {"esai", "Writing"}, {"essay", "Writing"},
		{"cerpen", "Writing"}, {"short story", "Writing"}, {"puisi", "Writing"},
		{"poetry", "Writing"}, {"artikel", "Writing"}, {"article", "Writing"},
		{"karya tulis", "Writing"}, {"jurnalistik", "Writing"}, {"blog", "Writing"},
		{"sastra", "Writing"},
		{"debat", "Debate"}, {"debate", "Debate"}, {"pidato", "Debate"}, {"speech", "Debate"},
		{"public speaking", "Debate"}, {"model united nations", "Debate"}, {"mun", "Debate"},
		{"olahraga", "Sports"}, {"sport", "Sports"}, {"futsal", "Sports"},
		{"sepak bola", "Sports"}, {"football", "Sports"}, {"basket", "Sports"},
		{"badminton", "Sports"}, {"bulu tangkis", "Sports"}, {"voli", "Sports"},
		{"volleyball", "Sports"}, {"esport", "Sports"}, {"e-sport", "Sports"},
		{"catur", "Sports"}, {"chess", "Sports"}, {"renang", "Sports"}, {"swimming", "Sports"},
	}

	levelKeywords = []keyword{
		{"sekolah dasar", "SD"}, {"elementary", "SD"}, {"primary school", "SD"},
		{"madrasah ibtidaiyah", "SD"}, {"sd", "SD"}, {"mi", "SD"},
		{"sekolah menengah pertama", "SMP"}, {"junior high", "SMP"}, {"middle school", "SMP"},
		{"smp", "SMP"}, {"mts", "SMP"},
		{"sekolah menengah atas", "SMA"}, {"sekolah menengah kejuruan", "SMA"},
		{"senior high", "SMA"}, {"high school", "SMA"}, {"sma", "SMA"}, {"smk", "SMA"},
		{"slta", "SMA"}, {"ma", "SMA"},
		{"mahasiswa", "Mahasiswa"}, {"universitas", "Mahasiswa"}, {"university", "Mahasiswa"},
		{"perguruan tinggi", "Mahasiswa"}, {"college", "Mahasiswa"}, {"kuliah", "Mahasiswa"},
		{"undergraduate", "Mahasiswa"}, {"sarjana", "Mahasiswa"}, {"diploma", "Mahasiswa"},
		{"s1", "Mahasiswa"}, {"d3", "Mahasiswa"},
		{"umum", "Umum"}, {"public", "Umum"}, {"general", "Umum"}, {"semua kalangan", "Umum"},
		{"all ages", "Umum"}, {"open for all", "Umum"},
	}

	formatKeywords = []keyword{
		{"hybrid", "Hybrid"}, {"hibrida", "Hybrid"}, {"campuran", "Hybrid"},
		{"online dan offline", "Hybrid"}, {"online & offline", "Hybrid"},
		{"online", "Online"}, {"daring", "Online"}, {"virtual", "Online"}, {"remote", "Online"},
		{"zoom", "Online"},
		{"offline", "Offline"}, {"luring", "Offline"}, {"onsite", "Offline"},
		{"on-site", "Offline"}, {"tatap muka", "Offline"}, {"in person", "Offline"},
		{"in-person", "Offline"},
	}

	participationKeywords = []keyword{
		{"individu", "Individual"}, {"individual", "Individual"}, {"perorangan", "Individual"},
		{"perseorangan", "Individual"}, {"solo", "Individual"}, {"single", "Individual"},
		{"beregu", "Team"}, {"berkelompok", "Team"}, {"kelompok", "Team"}, {"team", "Team"},
		{"tim", "Team"}, {"group", "Team"}, {"grup", "Team"},
	}
)

// Short keywords match whole words only, otherwise "sd" would hit "sdm" and "tim" would hit "timur".
const wholeWordMaxLen = 3

var (
	dmyPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})$`)
	nonDigits  = regexp.MustCompile(`\D+`)
)

// Keys checked when a pricing value arrives wrapped in an object.
var amountKeys = []string{"amount", "price", "harga", "biaya", "fee", "nominal", "value"}

// vocabulary is a closed value set with its fuzzy keyword table.
type vocabulary struct {
	values   []string
	keywords []keyword
	// catchAll receives text that matches nothing; empty drops it.
	catchAll string
	// split breaks "SMA, Mahasiswa" style strings into separate tokens.
	split bool
}

var (
	categoryVocab = vocabulary{
		values: types.Categories, keywords: categoryKeywords, catchAll: types.CategoryOther, split: true,
	}
	levelVocab         = vocabulary{values: types.Levels, keywords: levelKeywords, split: true}
	formatVocab        = vocabulary{values: types.Formats, keywords: formatKeywords}
	participationVocab = vocabulary{values: types.ParticipationTypes, keywords: participationKeywords, split: true}
)

var listSeparators = regexp.MustCompile(`\s*(?:[,;/|]|\s+dan\s+|\s+and\s+)\s*`)

// normalize coerces a string or array of strings into vocabulary values. Exact matches are
// case-insensitive; other tokens go through the keyword table. Returns nil when nothing maps.
func (v vocabulary) normalize(raw json.RawMessage) []string {
	var out []string
	seen := map[string]bool{}
	for _, token := range v.tokens(raw) {
		value := mapToken(token, v.values, v.keywords)
		if value == "" {
			value = v.catchAll
		}
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}

func (v vocabulary) tokens(raw json.RawMessage) []string {
	values := stringsOf(raw)
	if !v.split {
		return values
	}
	var out []string
	for _, s := range values {
		for _, part := range listSeparators.Split(s, -1) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func mapToken(token string, vocab []string, table []keyword) string {
	for _, v := range vocab {
		if strings.EqualFold(token, v) {
			return v
		}
	}
	lower := strings.ToLower(token)
	words := wordSet(lower)
	for _, kw := range table {
		if len(kw.token) <= wholeWordMaxLen {
			if words[kw.token] {
				return kw.value
			}
			continue
		}
		if strings.Contains(lower, kw.token) {
			return kw.value
		}
	}
	return ""
}

func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// NormalizeCategory maps category text, falling back to Other when any text exists.
func NormalizeCategory(raw json.RawMessage) []string {
	return categoryVocab.normalize(raw)
}

// NormalizeLevel maps participant levels; unmatched tokens are dropped.
func NormalizeLevel(raw json.RawMessage) []string {
	return levelVocab.normalize(raw)
}

// NormalizeParticipation maps participation types; unmatched tokens are dropped.
func NormalizeParticipation(raw json.RawMessage) []string {
	return participationVocab.normalize(raw)
}

// NormalizeFormat maps the event format to a single value. When an array is given the first
// token that maps wins.
func NormalizeFormat(raw json.RawMessage) *string {
	values := formatVocab.normalize(raw)
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}

// NormalizePricing converts numbers, digit-bearing strings, arrays of either and objects with an
// amount key into a fee list. Returns nil, never an empty slice, when nothing parses.
func NormalizePricing(raw json.RawMessage) []int64 {
	return pricing(raw, true)
}

func pricing(raw json.RawMessage, unwrap bool) []int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		var out []int64
		for _, item := range items {
			out = append(out, pricing(item, unwrap)...)
		}
		return out
	case '{':
		if !unwrap {
			return nil
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		for _, key := range amountKeys {
			if v, ok := obj[key]; ok {
				return pricing(v, false)
			}
		}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if n, ok := ParseAmount(s); ok {
			return []int64{n}
		}
		return nil
	default:
		var f float64
		// float64(math.MaxInt64) rounds up to 2^63, which no longer fits.
		if err := json.Unmarshal(raw, &f); err != nil || f < 0 || f >= math.MaxInt64 {
			return nil
		}
		return []int64{int64(f)}
	}
}

// ParseAmount strips every non-digit and parses what is left, so "Rp 50.000" is 50000.
func ParseAmount(s string) (int64, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NormalizeDate rewrites D-M-YYYY and D/M/YYYY as YYYY-MM-DD. ISO dates and any other text pass
// through trimmed. For arrays, last selects the final element instead of the first.
func NormalizeDate(raw json.RawMessage, last bool) *string {
	values := stringsOf(raw)
	if len(values) == 0 {
		return nil
	}
	pick := values[0]
	if last {
		pick = values[len(values)-1]
	}
	out := RewriteDate(pick)
	return &out
}

// RewriteDate converts a day-first numeric date to ISO form and returns anything else unchanged.
func RewriteDate(s string) string {
	s = strings.TrimSpace(s)
	m := dmyPattern.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	d, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%s-%02d-%02d", m[3], mo, d)
}

// NormalizeText trims a free-text value; blank collapses to nil. Arrays yield their first entry.
func NormalizeText(raw json.RawMessage) *string {
	values := stringsOf(raw)
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}

// NormalizeURL keeps exactly one registration link.
func NormalizeURL(raw json.RawMessage) *string {
	return NormalizeText(raw)
}

// NormalizeList returns every non-blank string of a string or array value.
func NormalizeList(raw json.RawMessage) []string {
	return stringsOf(raw)
}

// FirstText returns the first alias that yields non-blank text.
func FirstText(aliases ...json.RawMessage) *string {
	for _, raw := range aliases {
		if s := NormalizeText(raw); s != nil {
			return s
		}
	}
	return nil
}

// stringsOf flattens a JSON string, number or array into trimmed, non-blank strings.
func stringsOf(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		var out []string
		for _, item := range items {
			if item = bytes.TrimSpace(item); len(item) > 0 && item[0] == '[' {
				continue
			}
			out = append(out, stringsOf(item)...)
		}
		return out
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		if s = strings.TrimSpace(s); s == "" {
			return nil
		}
		return []string{s}
	case '{', 't', 'f':
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		return []string{n.String()}
	}
}

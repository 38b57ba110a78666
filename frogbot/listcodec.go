package frogbot

import (
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgtype"
)

// List columns (jobs, likes, pronouns, post channels, ...) are stored in
// postgres text[] literal form, ex: {a,b,"c d"}. The same text form is
// used under sqlite so rows are portable between the two backends.
var (
	listTypeMap   = pgtype.NewMap()
	listTypeMapMu sync.Mutex
)

// encodeList renders items as a text[] literal. An empty list is
// stored as NULL.
func encodeList(items []string) *string {
	if len(items) == 0 {
		return nil
	}
	listTypeMapMu.Lock()
	buf, err := listTypeMap.Encode(
		pgtype.TextArrayOID,
		pgtype.TextFormatCode,
		items,
		nil,
	)
	listTypeMapMu.Unlock()
	if err != nil {
		// only reachable for invalid UTF-8; store the items unquoted
		s := "{" + strings.Join(items, ",") + "}"
		return &s
	}
	s := string(buf)
	return &s
}

// decodeList parses a stored list column. NULL, "" and "{}" all decode
// to an empty list. Values that aren't valid array literals (rows written
// by older versions of the bot) fall back to a plain comma split with
// surrounding quotes stripped. Valid literals are returned as stored.
func decodeList(raw *string) []string {
	if raw == nil {
		return nil
	}
	data := strings.TrimSpace(*raw)
	if data == "" || data == "{}" {
		return nil
	}

	var items []string
	listTypeMapMu.Lock()
	err := listTypeMap.Scan(
		pgtype.TextArrayOID,
		pgtype.TextFormatCode,
		[]byte(data),
		&items,
	)
	listTypeMapMu.Unlock()
	if err != nil {
		return splitLegacyList(data)
	}
	return items
}

func splitLegacyList(data string) []string {
	data = strings.TrimSuffix(strings.TrimPrefix(data, "{"), "}")
	if data == "" {
		return nil
	}
	parts := strings.Split(data, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		items = append(items, strings.Trim(strings.Trim(p, "'"), `"`))
	}
	return items
}

// encodeCodes stores catalog codes as a list column.
func encodeCodes[T Enum](values []T) *string {
	items := make([]string, 0, len(values))
	for _, v := range values {
		items = append(items, strconv.Itoa(int(v)))
	}
	return encodeList(items)
}

// decodeCodes reads a list of catalog codes. Codes no longer in the
// catalog are dropped.
func decodeCodes[T Enum](raw *string, catalog []T) []T {
	var values []T
	for _, item := range decodeList(raw) {
		code, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			continue
		}
		if v, ok := lookupCode(catalog, code); ok {
			values = append(values, v)
		}
	}
	return values
}

package request

import (
	"net/url"
	"sort"
	"strings"
)

// Options are the client-supplied query options of one request.
type Options struct {
	Debug bool `json:"debug,omitempty"`
	// Include is nil when the client sent no include parameter and empty when
	// it sent an empty one.
	Include []string            `json:"include,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Sort    []string            `json:"sort,omitempty"`
	Filter  map[string][]string `json:"filter,omitempty"`
}

// ParseOptions reads options from a query string:
//
//	debug                      presence turns debug on
//	include=a,b.c              include paths; empty means none
//	fields[article]=title,body sparse fieldset per exposed type
//	sort=title,-created        sort tokens
//	filter[tags]=1,2           filter values per exposed field
func ParseOptions(q url.Values) Options {
	var o Options

	for _, key := range sortedKeys(q) {
		value := q.Get(key)

		switch {
		case key == "debug":
			o.Debug = true
		case key == "include":
			o.Include = splitList(value)
		case key == "sort":
			o.Sort = splitList(value)
		case bracketed(key, "fields") != "":
			if o.Fields == nil {
				o.Fields = map[string][]string{}
			}

			o.Fields[bracketed(key, "fields")] = splitList(value)
		case bracketed(key, "filter") != "":
			if o.Filter == nil {
				o.Filter = map[string][]string{}
			}

			o.Filter[bracketed(key, "filter")] = splitList(value)
		}
	}

	return o
}

// bracketed returns NAME for a key of the form prefix[NAME].
func bracketed(key, prefix string) string {
	rest, ok := strings.CutPrefix(key, prefix+"[")
	if !ok {
		return ""
	}

	name, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return ""
	}

	return name
}

// splitList splits a comma-separated value, dropping empty items. The
// result is never nil.
func splitList(s string) []string {
	out := []string{}

	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}

func sortedKeys(q url.Values) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

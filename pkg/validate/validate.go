// Package validate checks struct fields against rules in a `validate` tag.
//
// Rules are comma separated. Multi-value rules (in, between) take the
// following comma-separated values until the next known rule:
//
//	required          must not be zero or empty
//	nullable          skip remaining rules when empty
//	email             valid email address
//	url               absolute http(s) URL
//	min=N / max=N     number bounds, or string/slice length bounds
//	gt=N gte=N lt=N lte=N
//	between=lo,hi     inclusive number bounds
//	digits=N          exactly N decimal digits
//	in=a,b,c          one of the listed values
//
// Nested structs and slices of structs are validated too; their errors are
// keyed by path, e.g. "items[1].quantity" or "deliveryAddress.pincode".
//
//	type Input struct {
//	    Phone string `json:"phone" validate:"required,digits=10"`
//	    Unit  string `json:"unit"  validate:"nullable,in=kg,g,l,ml,piece,dozen,pack"`
//	}
package validate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Struct validates v and returns path → message. An empty map means valid.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errs
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		walkStruct(rv, "", errs)
	}
	return errs
}

// HasErrors reports whether errs is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

var timeType = reflect.TypeOf(time.Time{})

func walkStruct(rv reflect.Value, prefix string, errs map[string]string) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		value := rv.Field(i)
		path := prefix + jsonFieldName(field)

		if tag := field.Tag.Get("validate"); tag != "" {
			if msg := checkField(tag, path, value); msg != "" {
				errs[path] = msg
				continue
			}
		}
		descend(value, path, errs)
	}
}

func descend(value reflect.Value, path string, errs map[string]string) {
	switch value.Kind() {
	case reflect.Ptr:
		if !value.IsNil() {
			descend(value.Elem(), path, errs)
		}
	case reflect.Struct:
		if value.Type() != timeType {
			walkStruct(value, path+".", errs)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < value.Len(); i++ {
			elem := value.Index(i)
			for elem.Kind() == reflect.Ptr && !elem.IsNil() {
				elem = elem.Elem()
			}
			if elem.Kind() == reflect.Struct && elem.Type() != timeType {
				walkStruct(elem, fmt.Sprintf("%s[%d].", path, i), errs)
			}
		}
	}
}

func checkField(tag, name string, value reflect.Value) string {
	rules := splitRules(tag)
	if contains(rules, "nullable") && isEmpty(value) {
		return ""
	}
	for _, rule := range rules {
		if rule == "nullable" {
			continue
		}
		if msg := apply(rule, name, value); msg != "" {
			return msg
		}
	}
	return ""
}

func apply(rule, field string, v reflect.Value) string {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			if rule == "required" {
				return fmt.Sprintf("The %s field is required.", field)
			}
			return ""
		}
		v = v.Elem()
	}

	key, param, _ := strings.Cut(rule, "=")
	raw := fmt.Sprintf("%v", v.Interface())

	switch key {
	case "required":
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
	case "email":
		if !emailRE.MatchString(raw) {
			return fmt.Sprintf("The %s must be a valid email address.", field)
		}
	case "url":
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Sprintf("The %s must be a valid URL.", field)
		}
	case "min":
		n := parseFloat(param)
		if isNumeric(v) && toFloat(v) < n {
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		}
		if !isNumeric(v) && float64(length(v)) < n {
			return fmt.Sprintf("The %s must be at least %s characters.", field, param)
		}
	case "max":
		n := parseFloat(param)
		if isNumeric(v) && toFloat(v) > n {
			return fmt.Sprintf("The %s must not be greater than %s.", field, param)
		}
		if !isNumeric(v) && float64(length(v)) > n {
			return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
		}
	case "gt":
		if toFloat(v) <= parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than %s.", field, param)
		}
	case "gte":
		if toFloat(v) < parseFloat(param) {
			return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
		}
	case "lt":
		if toFloat(v) >= parseFloat(param) {
			return fmt.Sprintf("The %s must be less than %s.", field, param)
		}
	case "lte":
		if toFloat(v) > parseFloat(param) {
			return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
		}
	case "between":
		lo, hi, ok := strings.Cut(param, ",")
		if ok {
			f := toFloat(v)
			if f < parseFloat(lo) || f > parseFloat(hi) {
				return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
			}
		}
	case "digits":
		if !digitsRE.MatchString(raw) || strconv.Itoa(len(raw)) != param {
			return fmt.Sprintf("The %s must be %s digits.", field, param)
		}
	case "in":
		for _, a := range strings.Split(param, ",") {
			if raw == strings.TrimSpace(a) {
				return ""
			}
		}
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return ""
}

var (
	emailRE  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitsRE = regexp.MustCompile(`^\d+$`)
)

var knownRules = map[string]bool{
	"required": true, "nullable": true, "email": true, "url": true,
	"min": true, "max": true, "gt": true, "gte": true, "lt": true, "lte": true,
	"between": true, "digits": true, "in": true,
}

// splitRules breaks a tag on commas, folding tokens that are not rules back
// into the preceding multi-value rule: "required,in=a,b,max=3" yields
// ["required", "in=a,b", "max=3"].
func splitRules(tag string) []string {
	var rules []string
	for _, tok := range strings.Split(tag, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(tok), "=")
		if n := len(rules); n > 0 && !knownRules[name] && isMultiValue(rules[n-1]) {
			rules[n-1] += "," + tok
			continue
		}
		rules = append(rules, strings.TrimSpace(tok))
	}
	return rules
}

func isMultiValue(rule string) bool {
	return strings.HasPrefix(rule, "in=") || strings.HasPrefix(rule, "between=")
}

func contains(rules []string, target string) bool {
	for _, r := range rules {
		if r == target {
			return true
		}
	}
	return false
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false
	case reflect.Struct:
		return v.IsZero()
	}
	if isNumeric(v) {
		return toFloat(v) == 0
	}
	return false
}

func isNumeric(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	}
	f, _ := strconv.ParseFloat(fmt.Sprintf("%v", v.Interface()), 64)
	return f
}

func length(v reflect.Value) int {
	switch v.Kind() {
	case reflect.String:
		return len([]rune(v.String()))
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len()
	}
	return 0
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

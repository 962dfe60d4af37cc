package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrInvalidSection is returned when a payload does not match its section schema.
var ErrInvalidSection = errors.New("invalid section payload")

var (
	validate    = newValidator()
	partialDate = regexp.MustCompile(`^\d{4}(-(0[1-9]|1[0-2])(-(0[1-9]|[12]\d|3[01]))?)?$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("link", func(fl validator.FieldLevel) bool {
		return isLink(fl.Field().String())
	})
	_ = v.RegisterValidation("partialdate", func(fl validator.FieldLevel) bool {
		return partialDate.MatchString(fl.Field().String())
	})
	return v
}

// isLink accepts absolute http(s)/mailto URLs and site-relative paths.
func isLink(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, "//") {
		return true
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	switch parsed.Scheme {
	case "http", "https":
		return parsed.Host != ""
	case "mailto":
		return parsed.Opaque != ""
	}
	return false
}

// Decode strictly decodes raw into the record for name and validates it.
// Unknown fields are rejected.
func Decode(name SectionName, raw []byte) (Section, error) {
	section, err := New(name)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(section); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSection, name, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: %s: trailing data", ErrInvalidSection, name)
	}

	if err := Validate(section); err != nil {
		return nil, err
	}
	return section, nil
}

// Validate checks section against its schema tags.
func Validate(section Section) error {
	if section == nil || reflect.ValueOf(section).IsNil() {
		return fmt.Errorf("%w: nil section", ErrInvalidSection)
	}
	if err := validate.Struct(section); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				details = append(details, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSection, strings.Join(details, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSection, err)
	}
	return nil
}

// AssignIDs 为缺少 id 的列表条目生成 UUID，返回新分配的数量。
// 只在后台编辑入口调用，存储层不改写内容。
func AssignIDs(section Section) int {
	assigned := 0
	fill := func(id *string) {
		if *id == "" {
			*id = uuid.NewString()
			assigned++
		}
	}

	switch s := section.(type) {
	case *Projects:
		for i := range s.Items {
			fill(&s.Items[i].ID)
		}
	case *Experience:
		for i := range s.Items {
			fill(&s.Items[i].ID)
		}
	case *Certifications:
		for i := range s.Items {
			fill(&s.Items[i].ID)
		}
	}
	return assigned
}

// Encode converts section to a generic JSON object.
func Encode(section Section) (map[string]any, error) {
	raw, err := json.Marshal(section)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", section.SectionName(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", section.SectionName(), err)
	}
	return fields, nil
}

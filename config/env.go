package config

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadFromEnv overrides fields of the struct target points to with
// environment variables. Variable names are the prefix and the yaml tags of
// the field path, upper-cased and joined by '_': Compression.MinLength with
// prefix LEAN reads LEAN_COMPRESSION_MIN_LENGTH. environ has the format of
// os.Environ.
func LoadFromEnv(target any, prefix string, environ []string) error {
	values := make(map[string]string, len(environ))
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if prefix != "" && !strings.HasPrefix(key, prefix+"_") {
			continue
		}
		values[key] = value
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be a pointer to struct")
	}

	return loadStruct(v.Elem(), strings.ToUpper(prefix), values)
}

func loadStruct(v reflect.Value, prefix string, values map[string]string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		key := strings.ToUpper(name)
		if prefix != "" {
			key = prefix + "_" + key
		}

		if fieldValue.Kind() == reflect.Struct {
			if err := loadStruct(fieldValue, key, values); err != nil {
				return err
			}
			continue
		}

		raw, ok := values[key]
		if !ok {
			continue
		}

		if err := setFieldValue(fieldValue, raw); err != nil {
			return errors.Wrapf(err, "config: %s", key)
		}
	}

	return nil
}

// setFieldValue parses raw into field
func setFieldValue(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(strings.TrimSpace(raw), 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return errors.Errorf("unsupported slice type %v", field.Type())
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return errors.Errorf("unsupported field type %v", field.Type())
	}

	return nil
}

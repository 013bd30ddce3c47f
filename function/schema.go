package function

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/genkai/gemini"
)

var timeType = reflect.TypeOf(time.Time{})

// SchemaOf derives the wire schema for a function's input type by
// reflection. Structs become OBJECT nodes whose properties follow the json
// tags; fields without omitempty are required; pointers are nullable and
// optional. Two extra tags refine string fields: `description:"..."` and
// `enum:"a,b,c"`. Nesting recurses to arbitrary depth.
func SchemaOf(prototype any) (*gemini.Schema, error) {
	return schemaOfType(reflect.TypeOf(prototype))
}

func schemaOfType(t reflect.Type) (*gemini.Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot derive schema for untyped nil")
	}

	switch {
	case t == timeType:
		return &gemini.Schema{Type: gemini.TypeString, Format: "date-time"}, nil
	case t.Kind() == reflect.Pointer:
		s, err := schemaOfType(t.Elem())
		if err != nil {
			return nil, err
		}
		s.Nullable = true
		return s, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &gemini.Schema{Type: gemini.TypeBoolean}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &gemini.Schema{Type: gemini.TypeInteger}, nil
	case reflect.Float32, reflect.Float64:
		return &gemini.Schema{Type: gemini.TypeNumber}, nil
	case reflect.String:
		return &gemini.Schema{Type: gemini.TypeString}, nil
	case reflect.Slice, reflect.Array:
		items, err := schemaOfType(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return &gemini.Schema{Type: gemini.TypeArray, Items: items}, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map key type %s is not a string", t.Key())
		}
		// The wire schema cannot express free-form value constraints, so a
		// map is an open object.
		return &gemini.Schema{Type: gemini.TypeObject}, nil
	case reflect.Struct:
		return schemaOfStruct(t)
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return &gemini.Schema{}, nil
		}
		return nil, fmt.Errorf("unsupported interface type %s", t)
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func schemaOfStruct(t reflect.Type) (*gemini.Schema, error) {
	s := &gemini.Schema{
		Type:       gemini.TypeObject,
		Properties: make(map[string]*gemini.Schema),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			embedded, err := schemaOfStruct(field.Type)
			if err != nil {
				return nil, err
			}
			for name, prop := range embedded.Properties {
				s.Properties[name] = prop
			}
			s.Required = append(s.Required, embedded.Required...)
			continue
		}

		name, optional := jsonName(field)
		if name == "" {
			continue
		}

		prop, err := schemaOfType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if desc := field.Tag.Get("description"); desc != "" {
			prop.Description = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			if prop.Type != gemini.TypeString {
				return nil, fmt.Errorf("field %s: enum tag on non-string type", field.Name)
			}
			prop.Enum = strings.Split(enum, ",")
		}

		s.Properties[name] = prop
		if !optional && field.Type.Kind() != reflect.Pointer {
			s.Required = append(s.Required, name)
		}
	}

	sort.Strings(s.Required)
	return s, nil
}

// jsonName resolves the wire name of a struct field from its json tag and
// reports whether omitempty marks it optional.
func jsonName(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, rest, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	return name, strings.Contains(","+rest+",", ",omitempty,")
}

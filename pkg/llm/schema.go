package llm

// Type is a JSON schema primitive understood by structured-output models.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Schema is a provider-neutral response shape constraint.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	// Ordering is the property order the model should emit; defaults to Required.
	Ordering []string
	Required []string
	Items    *Schema
	Enum     []string
	MinItems int
	MaxItems int
}

// Object builds an object schema whose properties are all required.
func Object(props map[string]*Schema, order ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: order, Ordering: order}
}

// String builds a described string schema.
func String(desc string) *Schema { return &Schema{Type: TypeString, Description: desc} }

// Number builds a described number schema.
func Number(desc string) *Schema { return &Schema{Type: TypeNumber, Description: desc} }

// Integer builds a described integer schema.
func Integer(desc string) *Schema { return &Schema{Type: TypeInteger, Description: desc} }

// Enum builds a string schema restricted to values.
func Enum(desc string, values ...string) *Schema {
	return &Schema{Type: TypeString, Description: desc, Enum: values}
}

// Array builds an array schema with item bounds; 0 means unbounded.
func Array(desc string, items *Schema, minItems, maxItems int) *Schema {
	return &Schema{Type: TypeArray, Description: desc, Items: items, MinItems: minItems, MaxItems: maxItems}
}

package observer

// FieldDescriptor describes one named property of a wrapped entity type:
// its Go type and whether a required rule guards it.
type FieldDescriptor struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Descriptors returns one descriptor per property in declaration order.
// Override-only properties appear after the struct fields with an empty Type.
func (w *Wrapper[T]) Descriptors() []FieldDescriptor {
	names := w.table.properties(w.cfg.overrides)
	out := make([]FieldDescriptor, 0, len(names))
	for _, name := range names {
		descriptor := FieldDescriptor{Name: name}
		if fieldType, ok := w.table.types[name]; ok {
			descriptor.Type = fieldType.String()
		}
		if w.cfg.rules != nil {
			descriptor.Required = len(w.cfg.rules.requiredRules(name)) > 0
		}
		out = append(out, descriptor)
	}
	return out
}

package binding

// Collection is an ordered set of named value lists. Declaration order is
// significant: it fixes the axis order of the expansion product.
type Collection struct {
	names []string
	lists map[string][]string
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{lists: make(map[string][]string)}
}

// Add registers a value list under a name. Adding an existing name
// replaces its values without changing its declaration position.
func (c *Collection) Add(name string, values []string) *Collection {
	if _, ok := c.lists[name]; !ok {
		c.names = append(c.names, name)
	}
	c.lists[name] = values
	return c
}

// Names returns the declared names in declaration order.
func (c *Collection) Names() []string {
	return c.names
}

// Values returns the value list for a name, or nil if not declared.
func (c *Collection) Values(name string) []string {
	return c.lists[name]
}

// Len returns the number of declared names.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Binding is one concrete assignment of values to declared names.
// Primary and secondary provenance is kept separate so connector roles
// can distinguish variable bindings from stage-reference bindings;
// processor roles merge the two.
type Binding struct {
	Primary   map[string]string
	Secondary map[string]string
}

// Merged returns all bindings as one mapping. Names are disjoint across
// the two sides, which document validation guarantees.
func (b Binding) Merged() map[string]string {
	merged := make(map[string]string, len(b.Primary)+len(b.Secondary))
	for name, value := range b.Primary {
		merged[name] = value
	}
	for name, value := range b.Secondary {
		merged[name] = value
	}
	return merged
}

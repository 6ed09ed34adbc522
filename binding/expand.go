package binding

import (
	"fmt"

	apperrors "github.com/kbukum/flowkit/errors"
)

type axis struct {
	name      string
	values    []string
	secondary bool
}

// Expand computes the ordered Cartesian product of one or two collections.
//
// Names in singleValue contribute only the first value of their list,
// regardless of list length. With no declared names at all the result is
// a single empty binding. Axis order is declaration order with primary
// names first; the product enumerates with the last-declared name varying
// fastest, so downstream per-binding artifact indexes stay stable.
// Duplicate values expand to duplicate bindings.
func Expand(primary, secondary *Collection, singleValue map[string]bool) ([]Binding, error) {
	axes, err := collectAxes(primary, secondary, singleValue)
	if err != nil {
		return nil, err
	}

	if len(axes) == 0 {
		return []Binding{{Primary: map[string]string{}, Secondary: map[string]string{}}}, nil
	}

	total := 1
	for _, ax := range axes {
		total *= len(ax.values)
	}

	bindings := make([]Binding, 0, total)
	idx := make([]int, len(axes))
	for {
		b := Binding{Primary: make(map[string]string), Secondary: make(map[string]string)}
		for j, ax := range axes {
			if ax.secondary {
				b.Secondary[ax.name] = ax.values[idx[j]]
			} else {
				b.Primary[ax.name] = ax.values[idx[j]]
			}
		}
		bindings = append(bindings, b)

		// Odometer increment, rightmost axis fastest.
		j := len(axes) - 1
		for j >= 0 {
			idx[j]++
			if idx[j] < len(axes[j].values) {
				break
			}
			idx[j] = 0
			j--
		}
		if j < 0 {
			break
		}
	}
	return bindings, nil
}

// Count returns the expansion size without materializing bindings.
func Count(primary, secondary *Collection, singleValue map[string]bool) (int, error) {
	axes, err := collectAxes(primary, secondary, singleValue)
	if err != nil {
		return 0, err
	}
	total := 1
	for _, ax := range axes {
		total *= len(ax.values)
	}
	return total, nil
}

func collectAxes(primary, secondary *Collection, singleValue map[string]bool) ([]axis, error) {
	var axes []axis
	add := func(c *Collection, sec bool) error {
		if c == nil {
			return nil
		}
		for _, name := range c.Names() {
			values := c.Values(name)
			if singleValue[name] && len(values) > 1 {
				values = values[:1]
			}
			if len(values) == 0 {
				return apperrors.Dependency(fmt.Sprintf("no values available for %s", name), nil)
			}
			axes = append(axes, axis{name: name, values: values, secondary: sec})
		}
		return nil
	}
	if err := add(primary, false); err != nil {
		return nil, err
	}
	if err := add(secondary, true); err != nil {
		return nil, err
	}
	return axes, nil
}

package triangle

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeInvalidConfig        = "invalid_config"
	ErrTypeDegenerateProjection = "degenerate_projection"
)

// Methods is a set of triangle culling methods.
type Methods uint8

const (
	Backface Methods = 1 << iota
	Degenerate
	Small
	ViewDependent

	AllMethods = Backface | Degenerate | Small | ViewDependent
)

var methodNames = []struct {
	method Methods
	name   string
}{
	{Backface, "backface"},
	{Degenerate, "degenerate"},
	{Small, "small"},
	{ViewDependent, "view_dependent"},
}

// ParseMethods returns the set named by the given method names. "combined"
// enables every method.
func ParseMethods(names []string) (Methods, error) {
	var m Methods
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "backface", "back_face":
			m |= Backface
		case "degenerate", "zero_area":
			m |= Degenerate
		case "small", "small_triangle":
			m |= Small
		case "view_dependent", "view-dependent":
			m |= ViewDependent
		case "combined", "all":
			m |= AllMethods
		default:
			return 0, errors.New("unknown triangle culling method").
				WithType(ErrTypeInvalidConfig).
				WithTag("method", name)
		}
	}
	return m, nil
}

func (m Methods) Has(method Methods) bool {
	return m&method == method
}

// Names returns the name of each method in the set.
func (m Methods) Names() []string {
	names := make([]string, 0, len(methodNames))
	for _, mn := range methodNames {
		if m.Has(mn.method) {
			names = append(names, mn.name)
		}
	}
	return names
}

func (m Methods) String() string {
	return strings.Join(m.Names(), ",")
}

func (m Methods) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Names())
}

func (m *Methods) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return errors.New("triangle culling methods must be a list of names").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	methods, err := ParseMethods(names)
	if err != nil {
		return err
	}
	*m = methods
	return nil
}

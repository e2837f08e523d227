package declare

import (
	"fmt"

	elerrors "github.com/vango-dev/elements/internal/errors"
	"github.com/vango-dev/elements/pkg/element"
)

func errf(d *element.Draft, format string, args ...any) error {
	return elerrors.New("E203").
		WithElement(d.Declaration.Name).
		WithDetail(fmt.Sprintf(format, args...))
}

func wrapf(d *element.Draft, err error, format string, args ...any) error {
	return elerrors.New("E203").
		WithElement(d.Declaration.Name).
		WithDetail(fmt.Sprintf(format, args...)).
		Wrap(err)
}

package port

import (
	"context"
	"io"
)

// Renderer пишет HTML в w. templ.Component удовлетворяет этому интерфейсу.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

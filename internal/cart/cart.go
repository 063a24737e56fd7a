// Package cart is a client-side cart state container with a pluggable
// persistence port. State is loaded once at construction and written back
// after every mutation, so a crash loses at most nothing.
package cart

import (
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Store is the persistence port. Load returns the previously saved lines, or
// an empty slice when nothing was stored yet.
type Store interface {
	Load() ([]Line, error)
	Save(lines []Line) error
}

// Line is one cart entry. Identity is (ProductoID, Talla, Color); adding the
// same combination again merges quantities.
type Line struct {
	ProductoID uuid.UUID `json:"productoId"`
	Nombre     string    `json:"nombre"`
	Precio     int64     `json:"precio"`
	Cantidad   int       `json:"cantidad"`
	Talla      string    `json:"talla,omitempty"`
	Color      string    `json:"color,omitempty"`
	Imagen     string    `json:"imagen,omitempty"`
	// Stock caps Cantidad; it is the availability seen when the line was added.
	Stock int `json:"stock"`
}

type Cart struct {
	mu    sync.Mutex
	store Store
	lines []Line
}

func New(store Store) *Cart {
	c := &Cart{store: store}
	lines, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Msg("cart: failed to load persisted state, starting empty")
		lines = nil
	}
	c.lines = lines
	return c
}

// Add merges the line into the cart, capping the resulting quantity at the
// line's known stock. It returns the quantity actually held.
func (c *Cart) Add(line Line) (int, error) {
	if line.Cantidad <= 0 {
		return 0, fmt.Errorf("cart: quantity must be positive, got %d", line.Cantidad)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.find(line.ProductoID, line.Talla, line.Color)
	if idx < 0 {
		if line.Cantidad > line.Stock {
			line.Cantidad = line.Stock
		}
		c.lines = append(c.lines, line)
		return line.Cantidad, c.persist()
	}

	existing := &c.lines[idx]
	existing.Cantidad += line.Cantidad
	if existing.Cantidad > existing.Stock {
		existing.Cantidad = existing.Stock
	}
	return existing.Cantidad, c.persist()
}

// UpdateQuantity sets the quantity of an existing line. Zero or negative
// removes the line.
func (c *Cart) UpdateQuantity(productoID uuid.UUID, talla, color string, cantidad int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.find(productoID, talla, color)
	if idx < 0 {
		return fmt.Errorf("cart: line %s (%s/%s) not found", productoID, talla, color)
	}

	if cantidad <= 0 {
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		return c.persist()
	}

	if cantidad > c.lines[idx].Stock {
		cantidad = c.lines[idx].Stock
	}
	c.lines[idx].Cantidad = cantidad
	return c.persist()
}

func (c *Cart) Remove(productoID uuid.UUID, talla, color string) error {
	return c.UpdateQuantity(productoID, talla, color, 0)
}

func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	return c.persist()
}

// Lines returns a copy of the current cart contents.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, l := range c.lines {
		total += l.Precio * int64(l.Cantidad)
	}
	return total
}

// ItemCount is the total number of units across all lines.
func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, l := range c.lines {
		n += l.Cantidad
	}
	return n
}

func (c *Cart) find(productoID uuid.UUID, talla, color string) int {
	for i, l := range c.lines {
		if l.ProductoID == productoID && l.Talla == talla && l.Color == color {
			return i
		}
	}
	return -1
}

func (c *Cart) persist() error {
	if err := c.store.Save(c.lines); err != nil {
		return fmt.Errorf("cart: failed to persist state: %w", err)
	}
	return nil
}

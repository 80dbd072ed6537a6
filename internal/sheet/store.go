package sheet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSheetNotFound = errors.New("sheet not found")
	ErrSheetExists   = errors.New("sheet already exists")
)

// Store owns the sheets of one open spreadsheet. Handlers run on their own
// goroutines, so all access goes through the mutex; the evaluator and
// validator only ever see snapshot copies.
type Store struct {
	mu     sync.Mutex
	sheets []*Sheet
	newID  func() string
}

func NewStore() *Store {
	return &Store{newID: generateSheetID}
}

func generateSheetID() string {
	raw := make([]byte, 6)
	if _, err := rand.Read(raw); err != nil {
		return "sheet-0"
	}
	return hex.EncodeToString(raw)
}

// Create adds an empty sheet with the given name.
func (s *Store) Create(name string) (*Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByName(name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrSheetExists, name)
	}
	sheet := &Sheet{ID: s.newID(), Name: name, Cells: CellMap{}}
	s.sheets = append(s.sheets, sheet)
	return copySheet(sheet), nil
}

// Rename changes a sheet's name. Formulas referencing the old name are not
// rewritten; they degrade to empty-sheet lookups.
func (s *Store) Rename(oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findByName(newName) != nil {
		return fmt.Errorf("%w: %s", ErrSheetExists, newName)
	}
	sheet := s.findByName(oldName)
	if sheet == nil {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, oldName)
	}
	sheet.Name = newName
	return nil
}

func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sheet := range s.sheets {
		if sheet.Name == name {
			s.sheets = append(s.sheets[:i], s.sheets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSheetNotFound, name)
}

// Names returns sheet names in creation order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sheets))
	for _, sheet := range s.sheets {
		names = append(names, sheet.Name)
	}
	return names
}

// Get returns a copy of the named sheet.
func (s *Store) Get(name string) (*Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := s.findByName(name)
	if sheet == nil {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	return copySheet(sheet), nil
}

// SetCell writes a cell. Formula storage is the caller's concern: the engine
// evaluates formula text first and passes both source and computed value.
func (s *Store) SetCell(name string, pos Position, cell Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := s.findByName(name)
	if sheet == nil {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	if cell.Value == "" && cell.Formula == "" && cell.Format == nil {
		delete(sheet.Cells, Key(pos))
		return nil
	}
	sheet.Cells[Key(pos)] = cell
	return nil
}

// Cell reads one cell; absent cells come back as the zero Cell.
func (s *Store) Cell(name string, pos Position) (Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := s.findByName(name)
	if sheet == nil {
		return Cell{}, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	return sheet.Cells[Key(pos)], nil
}

// AddLabel attaches a named rectangular annotation to a sheet.
func (s *Store) AddLabel(name string, label Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet := s.findByName(name)
	if sheet == nil {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	sheet.Labels = append(sheet.Labels, label)
	return nil
}

// CellMaps snapshots every sheet's cells keyed by sheet name, the shape the
// formula evaluator consumes for cross-sheet references.
func (s *Store) CellMaps() map[string]CellMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps := make(map[string]CellMap, len(s.sheets))
	for _, sheet := range s.sheets {
		maps[sheet.Name] = copyCells(sheet.Cells)
	}
	return maps
}

// Snapshot returns copies of all sheets in creation order.
func (s *Store) Snapshot() []*Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Sheet, 0, len(s.sheets))
	for _, sheet := range s.sheets {
		out = append(out, copySheet(sheet))
	}
	return out
}

func (s *Store) findByName(name string) *Sheet {
	for _, sheet := range s.sheets {
		if sheet.Name == name {
			return sheet
		}
	}
	return nil
}

func copySheet(sheet *Sheet) *Sheet {
	out := &Sheet{ID: sheet.ID, Name: sheet.Name, Cells: copyCells(sheet.Cells)}
	if len(sheet.Labels) > 0 {
		out.Labels = append([]Label(nil), sheet.Labels...)
	}
	return out
}

func copyCells(cells CellMap) CellMap {
	out := make(CellMap, len(cells))
	for key, cell := range cells {
		out[key] = cell
	}
	return out
}

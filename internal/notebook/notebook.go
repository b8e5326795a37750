// Package notebook implements the code sandbox: an ordered sequence of code
// and markdown cells executed against a remote compute cluster.
//
// A notebook is treated as a sequential script, not a collection of
// independent cells: RunAll executes strictly in order and stops at the
// first code cell that fails.
package notebook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/datadeck-labs/datadeck/internal/backend"
	"github.com/datadeck-labs/datadeck/internal/store"
	"github.com/google/uuid"
)

// CellType distinguishes executable code from rendered prose.
type CellType string

// Cell types.
const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
)

// CellStatus is the execution state of one cell.
type CellStatus string

// Cell statuses. Cells move idle -> running -> success|error.
const (
	StatusIdle    CellStatus = "idle"
	StatusRunning CellStatus = "running"
	StatusSuccess CellStatus = "success"
	StatusError   CellStatus = "error"
)

// Cell is one notebook entry. Cells are controller-local and not persisted.
type Cell struct {
	ID     string
	Type   CellType
	Source string
	Output string
	Status CellStatus
}

// ErrNoCluster is returned when execution is requested before a cluster has
// been selected. Cell state is left unchanged.
var ErrNoCluster = errors.New("no cluster selected")

// ErrCellNotFound is returned when an operation names an unknown cell.
var ErrCellNotFound = errors.New("cell not found")

// transportFailureOutput is the fixed cell output shown when the execution
// service cannot be reached at all.
const transportFailureOutput = "Execution failed: could not reach the execution service"

// markdownPlaceholder is the initial source of a new markdown cell.
const markdownPlaceholder = "## Notes"

// defaultMarkdownDelay paces markdown cells during RunAll. Purely visual;
// markdown has no remote dependency.
const defaultMarkdownDelay = 150 * time.Millisecond

// Executor runs code remotely. backend.ClusterClient satisfies it.
type Executor interface {
	Execute(ctx context.Context, clusterID, code, language string) (*backend.ExecutionResult, error)
	DestroyContext(ctx context.Context, clusterID string) error
}

// Controller owns the cell sequence and its execution semantics.
type Controller struct {
	mu        sync.Mutex
	cells     []Cell
	clusterID string

	exec          Executor
	logger        *slog.Logger
	markdownDelay time.Duration
}

// Options configures a Controller.
type Options struct {
	Executor Executor
	Logger   *slog.Logger
	// MarkdownDelay overrides the RunAll pacing delay; zero keeps the
	// default. Tests set it negative to disable pacing entirely.
	MarkdownDelay time.Duration
}

// New creates a Controller with a single empty code cell, matching a fresh
// sandbox view.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.MarkdownDelay
	if delay == 0 {
		delay = defaultMarkdownDelay
	} else if delay < 0 {
		delay = 0
	}

	c := &Controller{
		exec:          opts.Executor,
		logger:        logger,
		markdownDelay: delay,
	}
	c.cells = []Cell{newCell(CellCode)}
	return c
}

func newCell(t CellType) Cell {
	source := ""
	if t == CellMarkdown {
		source = markdownPlaceholder
	}
	return Cell{
		ID:     uuid.New().String(),
		Type:   t,
		Source: source,
		Status: StatusIdle,
	}
}

// Cells returns a copy of the cell sequence in order.
func (c *Controller) Cells() []Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Cell(nil), c.cells...)
}

// SetCluster selects the cluster executions run against.
func (c *Controller) SetCluster(clusterID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clusterID = clusterID
}

// Cluster returns the selected cluster identifier, empty when none.
func (c *Controller) Cluster() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clusterID
}

// AddCell appends a new idle cell and returns it.
func (c *Controller) AddCell(t CellType) Cell {
	c.mu.Lock()
	defer c.mu.Unlock()

	cell := newCell(t)
	c.cells = append(c.cells, cell)
	return cell
}

// ChangeCell updates a cell's source text. Allowed in any status.
func (c *Controller) ChangeCell(id, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrCellNotFound
	}
	c.cells[i].Source = source
	return nil
}

// MoveUp swaps the cell with its predecessor; no-op at the top.
func (c *Controller) MoveUp(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrCellNotFound
	}
	if i > 0 {
		c.cells[i-1], c.cells[i] = c.cells[i], c.cells[i-1]
	}
	return nil
}

// MoveDown swaps the cell with its successor; no-op at the bottom.
func (c *Controller) MoveDown(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrCellNotFound
	}
	if i < len(c.cells)-1 {
		c.cells[i], c.cells[i+1] = c.cells[i+1], c.cells[i]
	}
	return nil
}

// DeleteCell removes the cell.
func (c *Controller) DeleteCell(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return ErrCellNotFound
	}
	c.cells = append(c.cells[:i], c.cells[i+1:]...)
	return nil
}

// SeedFromQuery replaces the cell sequence with the active query's content:
// a markdown cell carrying the prompt and a code cell carrying the generated
// code with its last output.
func (c *Controller) SeedFromQuery(q store.Query) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prompt := newCell(CellMarkdown)
	prompt.Source = "### " + q.Prompt

	code := newCell(CellCode)
	code.Source = q.Code
	code.Output = q.Output

	c.cells = []Cell{prompt, code}
}

// RunCell executes one cell. Markdown transitions directly to success. Code
// requires a selected cluster; without one the cell is left unchanged and
// ErrNoCluster is returned. Execution outcomes (including remote errors)
// are recorded on the cell, not returned.
func (c *Controller) RunCell(ctx context.Context, id string) error {
	c.mu.Lock()

	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrCellNotFound
	}

	if c.cells[i].Type == CellMarkdown {
		c.cells[i].Status = StatusSuccess
		c.mu.Unlock()
		return nil
	}

	if c.clusterID == "" {
		c.mu.Unlock()
		return ErrNoCluster
	}

	cluster := c.clusterID
	source := c.cells[i].Source
	c.cells[i].Status = StatusRunning
	c.cells[i].Output = ""
	c.mu.Unlock()

	status, output := c.execute(ctx, cluster, source)

	c.mu.Lock()
	defer c.mu.Unlock()
	if i = c.indexLocked(id); i >= 0 {
		c.cells[i].Status = status
		c.cells[i].Output = output
	}
	return nil
}

// execute runs source remotely and maps the result onto a terminal status.
func (c *Controller) execute(ctx context.Context, cluster, source string) (CellStatus, string) {
	result, err := c.exec.Execute(ctx, cluster, source, backend.DefaultLanguage)
	if err != nil {
		c.logger.Warn("cell execution transport failure", "cluster", cluster, "error", err)
		return StatusError, transportFailureOutput
	}

	output := result.Output
	if result.Error != "" {
		output = result.Error
	}
	if result.Status == "success" {
		return StatusSuccess, output
	}
	return StatusError, output
}

// RunAll executes every cell strictly in order. Markdown cells succeed after
// a short pacing delay; the first code cell that resolves to error stops the
// run, leaving later cells in whatever status they already had.
func (c *Controller) RunAll(ctx context.Context) error {
	c.mu.Lock()
	if c.clusterID == "" {
		c.mu.Unlock()
		return ErrNoCluster
	}
	ids := make([]string, len(c.cells))
	for i, cell := range c.cells {
		ids[i] = cell.ID
	}
	c.mu.Unlock()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.mu.Lock()
		i := c.indexLocked(id)
		if i < 0 {
			// Deleted mid-run; skip.
			c.mu.Unlock()
			continue
		}

		if c.cells[i].Type == CellMarkdown {
			c.cells[i].Status = StatusRunning
			c.mu.Unlock()
			if c.markdownDelay > 0 {
				select {
				case <-time.After(c.markdownDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			c.mu.Lock()
			if i = c.indexLocked(id); i >= 0 {
				c.cells[i].Status = StatusSuccess
			}
			c.mu.Unlock()
			continue
		}

		cluster := c.clusterID
		source := c.cells[i].Source
		c.cells[i].Status = StatusRunning
		c.cells[i].Output = ""
		c.mu.Unlock()

		status, output := c.execute(ctx, cluster, source)

		c.mu.Lock()
		if i = c.indexLocked(id); i >= 0 {
			c.cells[i].Status = status
			c.cells[i].Output = output
		}
		c.mu.Unlock()

		if status == StatusError {
			// Fail fast: a later cell depends on everything before it.
			return nil
		}
	}
	return nil
}

// RestartContext resets every cell to idle with outputs cleared, then asks
// the execution service to discard the remote context. The local reset is
// optimistic: it happens regardless of the remote call's outcome.
func (c *Controller) RestartContext(ctx context.Context) error {
	c.mu.Lock()
	cluster := c.clusterID
	for i := range c.cells {
		c.cells[i].Status = StatusIdle
		c.cells[i].Output = ""
	}
	c.mu.Unlock()

	if cluster == "" {
		return ErrNoCluster
	}

	if err := c.exec.DestroyContext(ctx, cluster); err != nil {
		c.logger.Warn("failed to destroy execution context", "cluster", cluster, "error", err)
		return err
	}
	return nil
}

// ClearOutputs resets every cell to idle with no output. Purely local.
func (c *Controller) ClearOutputs() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.cells {
		c.cells[i].Status = StatusIdle
		c.cells[i].Output = ""
	}
}

func (c *Controller) indexLocked(id string) int {
	for i := range c.cells {
		if c.cells[i].ID == id {
			return i
		}
	}
	return -1
}

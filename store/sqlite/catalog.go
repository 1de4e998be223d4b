/*
catalog.go - Configuration catalog: consultants, destinations, projects

PURPOSE:
  Holds the reference data the engine's snapshots are built from.
  Projects own their distribution keys; saving a project replaces all
  its keys as a unit inside one transaction, after validating the
  100%-sum invariant through engine.NewKeySet. The engine never sees
  an invalid snapshot.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fakturo/timereg/engine"
)

// =============================================================================
// RECORD TYPES
// =============================================================================

// Consultant is a minimal identity record. Employment and contact
// validation live outside this system.
type Consultant struct {
	ID   engine.ConsultantID
	Name string
}

// InvoiceProject is a billing destination.
type InvoiceProject struct {
	ID            engine.DestinationID
	ProjectNumber string
	Name          string
}

// Section is an organizational allocation destination.
type Section struct {
	ID        engine.DestinationID
	Name      string
	ShortName string
}

// Project is an issue-key prefix with its distribution keys in both
// dimensions. Keys are replaced as a unit on save.
type Project struct {
	ID       int64
	Key      engine.ProjectKey
	Name     string
	Billing  []engine.Share
	Sections []engine.Share
}

// =============================================================================
// CONSULTANTS
// =============================================================================

// SaveConsultant inserts (ID zero) or updates a consultant.
func (s *Store) SaveConsultant(ctx context.Context, c Consultant) (Consultant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO consultants (name) VALUES (?)", c.Name)
		if err != nil {
			return Consultant{}, fmt.Errorf("failed to insert consultant: %w", err)
		}
		id, _ := res.LastInsertId()
		c.ID = engine.ConsultantID(id)
		return c, nil
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE consultants SET name = ? WHERE id = ?", c.Name, c.ID)
	if err != nil {
		return Consultant{}, fmt.Errorf("failed to update consultant: %w", err)
	}
	return c, nil
}

// Consultants returns all consultants ordered by name.
func (s *Store) Consultants(ctx context.Context) ([]Consultant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM consultants ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query consultants: %w", err)
	}
	defer rows.Close()

	var consultants []Consultant
	for rows.Next() {
		var c Consultant
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		consultants = append(consultants, c)
	}
	return consultants, rows.Err()
}

// =============================================================================
// INVOICE PROJECTS
// =============================================================================

func (s *Store) SaveInvoiceProject(ctx context.Context, ip InvoiceProject) (InvoiceProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ip.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO invoice_projects (project_number, name) VALUES (?, ?)",
			ip.ProjectNumber, ip.Name)
		if err != nil {
			return InvoiceProject{}, fmt.Errorf("failed to insert invoice project: %w", err)
		}
		id, _ := res.LastInsertId()
		ip.ID = engine.DestinationID(id)
		return ip, nil
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE invoice_projects SET project_number = ?, name = ? WHERE id = ?",
		ip.ProjectNumber, ip.Name, ip.ID)
	if err != nil {
		return InvoiceProject{}, fmt.Errorf("failed to update invoice project: %w", err)
	}
	return ip, nil
}

func (s *Store) InvoiceProjects(ctx context.Context) ([]InvoiceProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_number, name FROM invoice_projects ORDER BY project_number, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice projects: %w", err)
	}
	defer rows.Close()

	var projects []InvoiceProject
	for rows.Next() {
		var ip InvoiceProject
		if err := rows.Scan(&ip.ID, &ip.ProjectNumber, &ip.Name); err != nil {
			return nil, err
		}
		projects = append(projects, ip)
	}
	return projects, rows.Err()
}

// =============================================================================
// SECTIONS
// =============================================================================

func (s *Store) SaveSection(ctx context.Context, sec Section) (Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sec.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO sections (name, short_name) VALUES (?, ?)",
			sec.Name, sec.ShortName)
		if err != nil {
			return Section{}, fmt.Errorf("failed to insert section: %w", err)
		}
		id, _ := res.LastInsertId()
		sec.ID = engine.DestinationID(id)
		return sec, nil
	}

	_, err := s.db.ExecContext(ctx,
		"UPDATE sections SET name = ?, short_name = ? WHERE id = ?",
		sec.Name, sec.ShortName, sec.ID)
	if err != nil {
		return Section{}, fmt.Errorf("failed to update section: %w", err)
	}
	return sec, nil
}

func (s *Store) Sections(ctx context.Context) ([]Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, short_name FROM sections ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.Name, &sec.ShortName); err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// =============================================================================
// PROJECTS + DISTRIBUTION KEYS (replace-all-per-project semantics)
// =============================================================================

// CreateProject inserts a project with its keys. Rejects configurations
// whose percentages do not sum to 100 in every populated dimension.
func (s *Store) CreateProject(ctx context.Context, p Project) (Project, error) {
	if err := validateProject(p); err != nil {
		return Project{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO projects (key, name) VALUES (?, ?)", p.Key, p.Name)
	if err != nil {
		return Project{}, fmt.Errorf("failed to insert project: %w", err)
	}
	p.ID, _ = res.LastInsertId()

	if err := insertKeys(ctx, tx, p); err != nil {
		return Project{}, err
	}

	if err := tx.Commit(); err != nil {
		return Project{}, err
	}
	return p, nil
}

// UpdateProject replaces a project's name and all of its keys.
// Returns false if the project does not exist.
func (s *Store) UpdateProject(ctx context.Context, p Project) (bool, error) {
	if err := validateProject(p); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE projects SET key = ?, name = ? WHERE id = ?", p.Key, p.Name, p.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM distribution_keys WHERE project_id = ?", p.ID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM section_keys WHERE project_id = ?", p.ID); err != nil {
		return false, err
	}

	if err := insertKeys(ctx, tx, p); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// DeleteProject removes a project and, via cascade, its keys.
func (s *Store) DeleteProject(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ProjectByKey returns one project with its keys, or nil.
func (s *Store) ProjectByKey(ctx context.Context, key engine.ProjectKey) (*Project, error) {
	projects, err := s.Projects(ctx)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Key == key {
			return &projects[i], nil
		}
	}
	return nil, nil
}

// Projects returns all projects with their keys, ordered by key.
func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, key, name FROM projects ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	index := make(map[int64]int)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Key, &p.Name); err != nil {
			return nil, err
		}
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadShares(ctx, "distribution_keys", "invoice_project_id", projects, index, false); err != nil {
		return nil, err
	}
	if err := s.loadShares(ctx, "section_keys", "section_id", projects, index, true); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Store) loadShares(ctx context.Context, table, destCol string, projects []Project, index map[int64]int, section bool) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT project_id, %s, percentage FROM %s ORDER BY id", destCol, table))
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			projectID int64
			dest      engine.DestinationID
			pct       string
		)
		if err := rows.Scan(&projectID, &dest, &pct); err != nil {
			return err
		}
		i, ok := index[projectID]
		if !ok {
			continue
		}
		percentage, err := decimal.NewFromString(pct)
		if err != nil {
			return fmt.Errorf("failed to parse stored percentage: %w", err)
		}
		share := engine.Share{Destination: dest, Percentage: percentage}
		if section {
			projects[i].Sections = append(projects[i].Sections, share)
		} else {
			projects[i].Billing = append(projects[i].Billing, share)
		}
	}
	return rows.Err()
}

func insertKeys(ctx context.Context, tx *sql.Tx, p Project) error {
	for _, share := range p.Billing {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO distribution_keys (project_id, invoice_project_id, percentage)
			VALUES (?, ?, ?)`,
			p.ID, share.Destination, share.Percentage.String()); err != nil {
			return fmt.Errorf("failed to insert distribution key: %w", err)
		}
	}
	for _, share := range p.Sections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO section_keys (project_id, section_id, percentage)
			VALUES (?, ?, ?)`,
			p.ID, share.Destination, share.Percentage.String()); err != nil {
			return fmt.Errorf("failed to insert section key: %w", err)
		}
	}
	return nil
}

func validateProject(p Project) error {
	_, err := engine.NewKeySet([]engine.ProjectKeys{{
		Key:      p.Key,
		Billing:  p.Billing,
		Sections: p.Sections,
	}})
	return err
}

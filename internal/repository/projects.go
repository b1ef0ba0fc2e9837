package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
)

func (r *Repository) CreateProject(project *domain.Project) error {
	// owner 隐含属于员工和经理集合，在同一个事务里一并写入关系表
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO projects (name, description, start_date, end_date, status, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_deleted, created_at, version
	`

	args := []any{project.Name, project.Description, project.StartDate, project.EndDate, project.Status, project.OwnerID}
	dst := []any{&project.ID, &project.IsDeleted, &project.CreatedAt, &project.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	for _, table := range []string{"project_employees", "project_managers"} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (project_id, user_id) VALUES ($1, $2)`, project.ID, project.OwnerID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetProjectByID(id int64, includeDeleted bool) (*domain.Project, error) {
	query := `
		SELECT name, description, start_date, end_date, status, owner_id, is_deleted, created_at, version
		FROM projects WHERE id = $1 AND (is_deleted = FALSE OR $2)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	project := &domain.Project{
		ID: id,
	}

	dst := []any{&project.Name, &project.Description, &project.StartDate, &project.EndDate, &project.Status, &project.OwnerID, &project.IsDeleted, &project.CreatedAt, &project.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id, includeDeleted).Scan(dst...); err != nil {
		return nil, err
	}

	return project, nil
}

func (r *Repository) scanProjects(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		project := &domain.Project{}
		dst := []any{&project.ID, &project.Name, &project.Description, &project.StartDate, &project.EndDate, &project.Status, &project.OwnerID, &project.IsDeleted, &project.CreatedAt, &project.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return projects, nil
}

func (r *Repository) GetAllProjects(includeDeleted bool) ([]*domain.Project, error) {
	query := `
		SELECT id, name, description, start_date, end_date, status, owner_id, is_deleted, created_at, version
		FROM projects WHERE (is_deleted = FALSE OR $1) ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return r.scanProjects(ctx, query, includeDeleted)
}

func (r *Repository) GetProjectsByUser(userID int64) ([]*domain.Project, error) {
	// owner 建项目时也会写进 project_employees，因此只查员工和经理两张关系表即可
	query := `
		SELECT DISTINCT p.id, p.name, p.description, p.start_date, p.end_date, p.status, p.owner_id, p.is_deleted, p.created_at, p.version
		FROM projects p
		LEFT JOIN project_employees pe ON p.id = pe.project_id
		LEFT JOIN project_managers pm ON p.id = pm.project_id
		WHERE p.is_deleted = FALSE AND (pe.user_id = $1 OR pm.user_id = $1)
		ORDER BY p.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return r.scanProjects(ctx, query, userID)
}

func (r *Repository) UpdateProject(project *domain.Project) error {
	query := `
		UPDATE projects
		SET
		    name = $1,
			description = $2,
			start_date = $3,
			end_date = $4,
			status = $5,
			owner_id = $6,
			version = version + 1
		WHERE id = $7 AND version = $8 AND is_deleted = FALSE
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{project.Name, project.Description, project.StartDate, project.EndDate, project.Status, project.OwnerID, project.ID, project.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&project.CreatedAt, &project.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) SoftDeleteProject(id int64) error {
	// 软删除保留评论和附件的引用完整性，行还在，只是不再出现在常规查询里
	query := `
		UPDATE projects SET is_deleted = TRUE, version = version + 1 WHERE id = $1 AND is_deleted = FALSE
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var deletedID int64
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&deletedID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) ProjectExists(projectID int64) (bool, error) {
	exists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND is_deleted = FALSE)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, projectID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *Repository) existsInRelation(table string, projectID int64, userID int64) (bool, error) {
	exists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE project_id = $1 AND user_id = $2)`
	if err := r.dbpool.QueryRowContext(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *Repository) IsUserOwner(projectID int64, userID int64) (bool, error) {
	exists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, projectID, userID).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *Repository) IsUserEmployee(projectID int64, userID int64) (bool, error) {
	return r.existsInRelation("project_employees", projectID, userID)
}

func (r *Repository) IsUserManager(projectID int64, userID int64) (bool, error) {
	return r.existsInRelation("project_managers", projectID, userID)
}

func (r *Repository) AddProjectEmployee(projectID int64, userID int64) error {
	return r.addToRelation("project_employees", projectID, userID)
}

func (r *Repository) RemoveProjectEmployee(projectID int64, userID int64) error {
	return r.removeFromRelation("project_employees", projectID, userID)
}

func (r *Repository) AddProjectManager(projectID int64, userID int64) error {
	return r.addToRelation("project_managers", projectID, userID)
}

func (r *Repository) RemoveProjectManager(projectID int64, userID int64) error {
	return r.removeFromRelation("project_managers", projectID, userID)
}

func (r *Repository) addToRelation(table string, projectID int64, userID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	// 重复添加不算错误
	query := `INSERT INTO ` + table + ` (project_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.dbpool.ExecContext(ctx, query, projectID, userID)
	return err
}

func (r *Repository) removeFromRelation(table string, projectID int64, userID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `DELETE FROM ` + table + ` WHERE project_id = $1 AND user_id = $2`
	_, err := r.dbpool.ExecContext(ctx, query, projectID, userID)
	return err
}

func (r *Repository) GetProjectEmployees(projectID int64) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.full_name, u.email, u.role, u.enabled, u.is_locked, u.created_at, u.version
		FROM users u
		JOIN project_employees pe ON u.id = pe.user_id
		WHERE pe.project_id = $1
		ORDER BY u.id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		dst := []any{&user.ID, &user.Username, &user.FullName, &user.Email, &user.Role, &user.Enabled, &user.IsLocked, &user.CreatedAt, &user.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

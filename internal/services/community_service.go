package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/glowspace/glowspace-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	defaultCommunityCategory = "general"
	maxCommunityTags         = 10
)

// CommunityStore manages communities, their members and messages in PostgreSQL.
type CommunityStore struct {
	db *sql.DB
}

func NewCommunityStore(db *sql.DB) *CommunityStore {
	return &CommunityStore{db: db}
}

// CommunityInput is the payload for creating a community.
type CommunityInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// Normalize trims fields and validates lengths.
func (in CommunityInput) Normalize() (CommunityInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if in.Category == "" {
		in.Category = defaultCommunityCategory
	}
	if n := len([]rune(in.Name)); n < 3 || n > 100 {
		return in, ErrInvalidInput
	}
	if len([]rune(in.Description)) > 1000 || len(in.Category) > 50 {
		return in, ErrInvalidInput
	}

	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]bool)
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > maxCommunityTags {
		return in, ErrInvalidInput
	}
	in.Tags = tags
	return in, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func parseCommunityID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return u, nil
}

// List returns active communities, newest first. userID marks membership.
func (s *CommunityStore) List(ctx context.Context, userID, category string) ([]models.Community, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(c.description, ''), c.category, c.tags, c.created_by,
		       c.member_count, c.created_at, c.updated_at,
		       EXISTS(SELECT 1 FROM community_members m WHERE m.community_id = c.id AND m.user_id = $1)
		FROM communities c
		WHERE c.is_active = TRUE AND ($2 = '' OR c.category = $2)
		ORDER BY c.created_at DESC
		LIMIT 100
	`, userID, strings.ToLower(strings.TrimSpace(category)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Community{}
	for rows.Next() {
		var c models.Community
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Category, pq.Array(&c.Tags), &c.CreatedBy,
			&c.MemberCount, &c.CreatedAt, &c.UpdatedAt, &c.IsMember); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a community and makes creatorID its admin.
func (s *CommunityStore) Create(ctx context.Context, creatorID string, in CommunityInput) (models.Community, error) {
	in, err := in.Normalize()
	if err != nil {
		return models.Community{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Community{}, err
	}
	defer func() { _ = tx.Rollback() }()

	c := models.Community{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		CreatedBy:   creatorID,
		MemberCount: 1,
		IsMember:    true,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO communities (name, description, category, tags, created_by, member_count)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Description, c.Category, pq.Array(c.Tags), creatorID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Community{}, ErrDuplicate
		}
		return models.Community{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO community_members (community_id, user_id, role) VALUES ($1, $2, $3)
	`, c.ID, creatorID, models.CommunityRoleAdmin); err != nil {
		return models.Community{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Community{}, err
	}
	return c, nil
}

// Join adds userID to the community. Joining twice is a no-op.
func (s *CommunityStore) Join(ctx context.Context, communityID, userID string) error {
	cid, err := parseCommunityID(communityID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var active bool
	if err := tx.QueryRowContext(ctx, `SELECT is_active FROM communities WHERE id = $1`, cid).Scan(&active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !active {
		return ErrNotFound
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO community_members (community_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (community_id, user_id) DO NOTHING
	`, cid, userID, models.CommunityRoleMember)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE communities SET member_count = member_count + 1, updated_at = NOW() WHERE id = $1
		`, cid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Leave removes userID from the community. Leaving when not a member is a no-op.
func (s *CommunityStore) Leave(ctx context.Context, communityID, userID string) error {
	cid, err := parseCommunityID(communityID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM community_members WHERE community_id = $1 AND user_id = $2
	`, cid, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE communities SET member_count = GREATEST(member_count - 1, 0), updated_at = NOW() WHERE id = $1
		`, cid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *CommunityStore) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	cid, err := parseCommunityID(communityID)
	if err != nil {
		return false, err
	}
	var ok bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM community_members WHERE community_id = $1 AND user_id = $2)
	`, cid, userID).Scan(&ok)
	return ok, err
}

// ListMessages returns a page of community messages oldest-first. Members only.
func (s *CommunityStore) ListMessages(ctx context.Context, communityID, userID string, before *time.Time, limit int) ([]models.CommunityMessage, bool, error) {
	ok, err := s.IsMember(ctx, communityID, userID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, ErrForbidden
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	var beforeArg interface{}
	if before != nil {
		beforeArg = before.UTC()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, community_id, user_id, username, content, created_at
		FROM community_messages
		WHERE community_id = $1 AND is_deleted = FALSE AND ($2::timestamp IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, communityID, beforeArg, limit+1)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	msgs := make([]models.CommunityMessage, 0, limit)
	for rows.Next() {
		var m models.CommunityMessage
		if err := rows.Scan(&m.ID, &m.CommunityID, &m.UserID, &m.Username, &m.Content, &m.CreatedAt); err != nil {
			return nil, false, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, hasMore, nil
}

// CreateMessage posts content to a community. Members only.
func (s *CommunityStore) CreateMessage(ctx context.Context, communityID, userID, username, content string) (models.CommunityMessage, error) {
	content, err := ValidateContent(content)
	if err != nil {
		return models.CommunityMessage{}, err
	}
	ok, err := s.IsMember(ctx, communityID, userID)
	if err != nil {
		return models.CommunityMessage{}, err
	}
	if !ok {
		return models.CommunityMessage{}, ErrForbidden
	}

	m := models.CommunityMessage{
		CommunityID: communityID,
		UserID:      userID,
		Username:    username,
		Content:     content,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO community_messages (community_id, user_id, username, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, communityID, userID, username, content).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return models.CommunityMessage{}, err
	}
	return m, nil
}

// DeleteMessage soft-deletes a message. Only its author may delete it.
func (s *CommunityStore) DeleteMessage(ctx context.Context, communityID, messageID, userID string) error {
	if _, err := parseCommunityID(communityID); err != nil {
		return err
	}
	mid, err := uuid.Parse(messageID)
	if err != nil {
		return ErrNotFound
	}

	var author string
	err = s.db.QueryRowContext(ctx, `
		SELECT user_id FROM community_messages
		WHERE id = $1 AND community_id = $2 AND is_deleted = FALSE
	`, mid, communityID).Scan(&author)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if author != userID {
		return ErrForbidden
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE community_messages SET is_deleted = TRUE, content = '' WHERE id = $1
	`, mid)
	return err
}

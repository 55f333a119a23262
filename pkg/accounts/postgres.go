package accounts

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
)

//go:embed schema.sql
var schema string

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, url string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the account tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const subscriptionColumns = `id, user_id, stripe_subscription_id, owner_seated, deactivated, created_at`

func scanSubscription(row interface{ Scan(...any) error }) (*Subscription, error) {
	sub := &Subscription{}
	err := row.Scan(&sub.ID, &sub.UserID, &sub.StripeSubscriptionID, &sub.OwnerSeated,
		&sub.Deactivated, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FetchSubscriptionByID retrieves a subscription by its ID
func (s *PostgresStore) FetchSubscriptionByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1
	`
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// FetchSubscriptionByOwnerID retrieves the subscription owned by a user
func (s *PostgresStore) FetchSubscriptionByOwnerID(ctx context.Context, ownerID uuid.UUID) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
	`
	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by owner: %w", err)
	}
	return sub, nil
}

// FetchSubscriptions lists every subscription, oldest first
func (s *PostgresStore) FetchSubscriptions(ctx context.Context) ([]*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	subs := []*Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// SetOwnerSeated records whether the owner occupies a seat on their subscription
func (s *PostgresStore) SetOwnerSeated(ctx context.Context, subscriptionID uuid.UUID, seated bool) error {
	query := `UPDATE subscriptions SET owner_seated = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, seated, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to update owner seat: %w", err)
	}
	return expectOneRow(result, ErrSubscriptionNotFound)
}

// FetchEnterpriseAccountForSubscription retrieves the company attached to a subscription
func (s *PostgresStore) FetchEnterpriseAccountForSubscription(ctx context.Context, subscriptionID uuid.UUID) (*EnterpriseAccount, error) {
	query := `
		SELECT id, company_name, domain, subscription_id
		FROM enterprise_accounts
		WHERE subscription_id = $1
	`
	account := &EnterpriseAccount{}
	err := s.db.QueryRowContext(ctx, query, subscriptionID).Scan(
		&account.ID, &account.CompanyName, &account.Domain, &account.SubscriptionID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEnterpriseAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enterprise account: %w", err)
	}
	return account, nil
}

const userColumns = `id, email, name, subscription_id, episode_credit_count, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	user := &User{}
	var subscriptionID uuid.NullUUID
	err := row.Scan(&user.ID, &user.Email, &user.Name, &subscriptionID,
		&user.EpisodeCreditCount, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	if subscriptionID.Valid {
		id := subscriptionID.UUID
		user.SubscriptionID = &id
	}
	return user, nil
}

// FetchUserByID retrieves a user by ID
func (s *PostgresStore) FetchUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateUser writes the mutable user fields
func (s *PostgresStore) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, subscription_id = $3, episode_credit_count = $4
		WHERE id = $5
	`
	var subscriptionID uuid.NullUUID
	if user.SubscriptionID != nil {
		subscriptionID = uuid.NullUUID{UUID: *user.SubscriptionID, Valid: true}
	}
	result, err := s.db.ExecContext(ctx, query, strings.TrimSpace(user.Email), user.Name,
		subscriptionID, user.EpisodeCreditCount, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// FetchTeammatesByOwnerID lists the members of the subscription owned by ownerID
func (s *PostgresStore) FetchTeammatesByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.subscription_id, u.episode_credit_count, u.created_at
		FROM users u
		JOIN subscriptions s ON u.subscription_id = s.id
		WHERE s.user_id = $1 AND u.id <> $1
		ORDER BY u.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teammates: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	teammates := []*User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan teammate: %w", err)
		}
		teammates = append(teammates, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list teammates: %w", err)
	}
	return teammates, nil
}

// AddUserToSubscription makes the user a teammate of the subscription
func (s *PostgresStore) AddUserToSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	query := `UPDATE users SET subscription_id = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, subscriptionID, userID)
	if err != nil {
		return fmt.Errorf("failed to add user to subscription: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// RemoveTeammate clears the user's team membership
func (s *PostgresStore) RemoveTeammate(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET subscription_id = NULL WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to remove teammate: %w", err)
	}
	return expectOneRow(result, ErrUserNotFound)
}

// FetchTeamInvite retrieves a pending invite by ID
func (s *PostgresStore) FetchTeamInvite(ctx context.Context, id uuid.UUID) (*TeamInvite, error) {
	query := `
		SELECT id, inviter_user_id, email, created_at
		FROM team_invites
		WHERE id = $1
	`
	invite := &TeamInvite{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&invite.ID, &invite.InviterUserID, &invite.Email, &invite.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team invite: %w", err)
	}
	return invite, nil
}

// FetchTeamInvites lists the pending invites sent by inviterID
func (s *PostgresStore) FetchTeamInvites(ctx context.Context, inviterID uuid.UUID) ([]*TeamInvite, error) {
	query := `
		SELECT id, inviter_user_id, email, created_at
		FROM team_invites
		WHERE inviter_user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, inviterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team invites: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	invites := []*TeamInvite{}
	for rows.Next() {
		invite := &TeamInvite{}
		if err := rows.Scan(&invite.ID, &invite.InviterUserID, &invite.Email, &invite.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team invite: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list team invites: %w", err)
	}
	return invites, nil
}

// InsertTeamInvite creates a pending invite
func (s *PostgresStore) InsertTeamInvite(ctx context.Context, email string, inviterID uuid.UUID) (*TeamInvite, error) {
	invite := &TeamInvite{
		ID:            uuid.New(),
		InviterUserID: inviterID,
		Email:         strings.TrimSpace(email),
	}

	query := `
		INSERT INTO team_invites (id, inviter_user_id, email)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, invite.ID, invite.InviterUserID, invite.Email).
		Scan(&invite.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team invite: %w", err)
	}
	return invite, nil
}

// DeleteTeamInvite removes a pending invite
func (s *PostgresStore) DeleteTeamInvite(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM team_invites WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete team invite: %w", err)
	}
	return expectOneRow(result, ErrInviteNotFound)
}

// FetchEmailSettings lists the newsletters a user is subscribed to
func (s *PostgresStore) FetchEmailSettings(ctx context.Context, userID uuid.UUID) ([]*EmailSetting, error) {
	query := `
		SELECT user_id, newsletter
		FROM email_settings
		WHERE user_id = $1
		ORDER BY newsletter ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list email settings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	settings := []*EmailSetting{}
	for rows.Next() {
		setting := &EmailSetting{}
		if err := rows.Scan(&setting.UserID, &setting.Newsletter); err != nil {
			return nil, fmt.Errorf("failed to scan email setting: %w", err)
		}
		settings = append(settings, setting)
	}
	return settings, rows.Err()
}

// FetchEpisodeCredits lists the episodes a user unlocked with credits
func (s *PostgresStore) FetchEpisodeCredits(ctx context.Context, userID uuid.UUID) ([]*EpisodeCredit, error) {
	query := `
		SELECT user_id, episode_sequence
		FROM episode_credits
		WHERE user_id = $1
		ORDER BY episode_sequence ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list episode credits: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	credits := []*EpisodeCredit{}
	for rows.Next() {
		credit := &EpisodeCredit{}
		if err := rows.Scan(&credit.UserID, &credit.EpisodeSequence); err != nil {
			return nil, fmt.Errorf("failed to scan episode credit: %w", err)
		}
		credits = append(credits, credit)
	}
	return credits, rows.Err()
}

// expectOneRow maps a zero-row update to notFound.
func expectOneRow(result sql.Result, notFound *Error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/db"
)

// Handler serves signup, login and the current-user endpoint.
type Handler struct {
	pool   *pgxpool.Pool
	tokens *Tokens
}

func NewHandler(pool *pgxpool.Pool, tokens *Tokens) *Handler {
	return &Handler{pool: pool, tokens: tokens}
}

type SignupRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type TokenResponse struct {
	Token  string   `json:"token"`
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

// ===== Signup =====
func (h *Handler) Signup(c echo.Context) error {
	req := new(SignupRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(req); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ctx := c.Request().Context()
	var userID string
	err = db.InTx(ctx, h.pool, func(tx pgx.Tx) error {
		var err error
		userID, err = CreateUser(ctx, tx, req.Email, string(hashed), req.FullName, RoleCustomer)
		return err
	})
	if err != nil {
		if IsEmailTaken(err) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return apperr.Respond(c, err, "signup failed")
	}

	roles := []string{RoleCustomer}
	signed, err := h.tokens.Issue(userID, roles)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusCreated, TokenResponse{Token: signed, UserID: userID, Roles: roles})
}

// CreateUser inserts a user with its profile and roles. The password must
// already be hashed.
func CreateUser(ctx context.Context, q db.Querier, email, hashedPassword, fullName string, roles ...string) (string, error) {
	var userID string
	err := q.QueryRow(ctx, `
		INSERT INTO users (email, password)
		VALUES ($1, $2)
		RETURNING id
	`, email, hashedPassword).Scan(&userID)
	if err != nil {
		return "", err
	}

	if _, err := q.Exec(ctx, `INSERT INTO profiles (id, full_name) VALUES ($1, $2)`, userID, fullName); err != nil {
		return "", err
	}
	for _, role := range roles {
		if err := GrantRole(ctx, q, userID, role); err != nil {
			return "", err
		}
	}
	return userID, nil
}

// IsEmailTaken reports whether err is the users email unique violation.
func IsEmailTaken(err error) bool {
	return apperr.IsUniqueViolation(err, "users_email_key")
}

// GrantRole adds role to the user. Granting a held role is a no-op.
func GrantRole(ctx context.Context, q db.Querier, userID, role string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2::app_role)
		ON CONFLICT ON CONSTRAINT user_roles_user_role_key DO NOTHING
	`, userID, role)
	return err
}

// LoadRoles returns the roles held by userID.
func LoadRoles(ctx context.Context, q db.Querier, userID string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT role::text FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

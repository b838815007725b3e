package store

import (
	"context"

	"github.com/cicap/personnel/internal/sheet"
	"github.com/cicap/personnel/types"
)

// Users workbook columns.
const (
	ColumnUsername = "Usuario"
	ColumnPassword = "Contraseña"
)

// Seed account written when the users workbook does not exist.
const (
	SeedUsername = "admin"
	SeedPassword = "1234"
)

var userHeader = []string{ColumnUsername, ColumnPassword}

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	path string
}

func NewUserRepository(path string) *UserRepository {
	return &UserRepository{path: path}
}

// Path returns the backing workbook location.
func (r *UserRepository) Path() string {
	return r.path
}

// Load returns every account in file order. A missing workbook is created
// holding only the seed account.
func (r *UserRepository) Load(ctx context.Context) ([]types.UserAccount, error) {
	exists, err := sheet.Exists(r.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		seed := []types.UserAccount{{Username: SeedUsername, Password: SeedPassword}}
		if err := r.Save(ctx, seed); err != nil {
			return nil, err
		}
		return seed, nil
	}

	table, err := sheet.Read(r.path)
	if err != nil {
		return nil, err
	}

	accounts := make([]types.UserAccount, 0, len(table.Rows))
	for _, row := range table.Rows {
		accounts = append(accounts, types.UserAccount{
			Username: table.Value(row, ColumnUsername),
			Password: table.Value(row, ColumnPassword),
		})
	}
	return accounts, nil
}

// Save overwrites the workbook with accounts.
func (r *UserRepository) Save(ctx context.Context, accounts []types.UserAccount) error {
	rows := make([][]any, 0, len(accounts))
	for _, account := range accounts {
		rows = append(rows, []any{account.Username, account.Password})
	}
	return sheet.Write(r.path, userHeader, rows)
}

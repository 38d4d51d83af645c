package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/model"
)

// SampleCustomers are created by Seed.
var SampleCustomers = []string{
	"Microsoft", "Google", "Amazon", "Apple", "Meta",
	"IBM", "Oracle", "SAP", "Salesforce", "Adobe",
}

const seedAdminTarget = 10

// Seed creates an administrator and the sample customers. It is safe to run
// more than once.
func (im *Importer) Seed(ctx context.Context, adminEmail, adminPassword string) (Result, error) {
	var res Result
	if adminEmail == "" || adminPassword == "" {
		return res, errors.New("admin email and password are required")
	}
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return res, fmt.Errorf("hash password: %w", err)
	}
	name := "Admin User"
	admin := &model.User{
		ID:           uuid.New().String(),
		Email:        normalize(adminEmail),
		Name:         &name,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Target:       seedAdminTarget,
	}
	inserted, err := im.store.UpsertUser(ctx, admin)
	if err != nil {
		return res, fmt.Errorf("seed admin: %w", err)
	}
	if inserted {
		res.Created++
	} else {
		res.Updated++
	}

	for _, c := range SampleCustomers {
		im.createCustomer(ctx, c, &res)
	}
	im.log.Infow("seeded", "admin", admin.Email, "customers", len(SampleCustomers))
	return res, nil
}

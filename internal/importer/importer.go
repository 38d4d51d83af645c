// Package importer loads users and customers in bulk from semicolon
// separated files and seeds a fresh installation.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meeting-tracker/internal/auth"
	"meeting-tracker/internal/model"
)

// DefaultPhoto is the image assigned to users without a photo on disk.
const DefaultPhoto = "/photos/default.jpg"

// user file columns: ID;display_name;Email;rank_bucket;Role
const userColumns = 5

// Store is the subset of persistence the importer writes to.
type Store interface {
	UpsertUser(ctx context.Context, u *model.User) (bool, error)
	CreateCustomer(ctx context.Context, c *model.Customer) error
}

type Options struct {
	// DefaultPassword is set on newly created users.
	DefaultPassword string
	// PhotoDir holds <ID>.jpg files; empty disables the lookup.
	PhotoDir string
}

// Result summarises one import run.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r Result) String() string {
	return fmt.Sprintf("created=%d updated=%d skipped=%d failed=%d", r.Created, r.Updated, r.Skipped, r.Failed)
}

type Importer struct {
	log   *zap.SugaredLogger
	store Store
	opts  Options
}

func New(log *zap.SugaredLogger, store Store, opts Options) *Importer {
	return &Importer{log: log.Named("importer"), store: store, opts: opts}
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}

// Users imports a user file. Rows whose column count differs from the
// header are skipped. Users that already exist keep their password and
// target; name, image and role follow the file.
func (im *Importer) Users(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	if im.opts.DefaultPassword == "" {
		return res, errors.New("default password is required")
	}
	hash, err := auth.HashPassword(im.opts.DefaultPassword)
	if err != nil {
		return res, fmt.Errorf("hash password: %w", err)
	}

	cr := newReader(r)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("read header: %w", err)
	}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read users: %w", err)
		}
		if len(rec) != userColumns {
			res.Skipped++
			continue
		}

		u := im.userFromRecord(rec, hash)
		if u.Email == "" {
			res.Skipped++
			continue
		}
		inserted, err := im.store.UpsertUser(ctx, u)
		if err != nil {
			im.log.Warnw("import user failed", "email", u.Email, "error", err)
			res.Failed++
			continue
		}
		if inserted {
			res.Created++
		} else {
			res.Updated++
		}
	}
	im.log.Infow("users imported", "created", res.Created, "updated", res.Updated, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (im *Importer) userFromRecord(rec []string, hash string) *model.User {
	for i := range rec {
		rec[i] = strings.TrimSpace(stripBOM(rec[i]))
	}
	extID, name, email, role := rec[0], rec[1], normalize(rec[2]), model.RoleEmployee
	if rec[4] == "Admin" {
		role = model.RoleAdmin
	}
	image := im.photo(extID)
	u := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Image:        &image,
		PasswordHash: hash,
		Role:         role,
		Target:       model.DefaultTarget,
	}
	if name != "" {
		u.Name = &name
	}
	return u
}

func (im *Importer) photo(extID string) string {
	if im.opts.PhotoDir == "" || extID == "" || strings.ContainsAny(extID, `/\`) {
		return DefaultPhoto
	}
	if _, err := os.Stat(filepath.Join(im.opts.PhotoDir, extID+".jpg")); err != nil {
		return DefaultPhoto
	}
	return "/photos/" + extID + ".jpg"
}

// Customers imports one customer name per line after a header line.
// Names that already exist are skipped.
func (im *Importer) Customers(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	cr := newReader(r)
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read customers: %w", err)
		}
		if first {
			first = false
			continue
		}
		name := strings.TrimSpace(stripBOM(rec[0]))
		if name == "" {
			continue
		}
		im.createCustomer(ctx, name, &res)
	}
	im.log.Infow("customers imported", "created", res.Created, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (im *Importer) createCustomer(ctx context.Context, name string, res *Result) {
	err := im.store.CreateCustomer(ctx, &model.Customer{ID: uuid.New().String(), Name: name})
	switch {
	case err == nil:
		res.Created++
	case errors.Is(err, model.ErrConflict):
		res.Skipped++
	default:
		im.log.Warnw("import customer failed", "name", name, "error", err)
		res.Failed++
	}
}

func stripBOM(s string) string { return strings.TrimPrefix(s, "\ufeff") }

func normalize(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

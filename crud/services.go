package crud

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"microposts/domain"
)

// A ServicesConfig is any function that takes in a pointer to a Services
// object and returns an error. It wraps the constructor of a crud service,
// so that main.go can pick services with functional options.
type ServicesConfig func(*Services) error

// Services is a container object holding pointers to all the crud services.
// The crud services all share the database connection provided by Services.
type Services struct {
	db        *gorm.DB
	User      *UserService
	Micropost *MicropostService
	Relation  *RelationService
}

// NewServices returns a new Services object, containing any crud services
// it's told to create by one of the passed in ServicesConfig functions.
// Options run in order, so WithRelation must come before WithMicropost.
func NewServices(db *gorm.DB, cfgs ...ServicesConfig) (*Services, error) {
	s := Services{
		db: db,
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// WithUser wraps the constructor of UserService, NewUserService.
func WithUser(pepper, hmacKey string) ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.db, pepper, hmacKey)
		return nil
	}
}

// WithRelation wraps the constructor of RelationService, NewRelationService.
// cache and publisher may be nil.
func WithRelation(cache domain.CountCache, publisher domain.EventPublisher) ServicesConfig {
	return func(s *Services) error {
		s.Relation = NewRelationService(s.db, cache, publisher)
		return nil
	}
}

// WithMicropost wraps the constructor of MicropostService, NewMicropostService.
func WithMicropost() ServicesConfig {
	return func(s *Services) error {
		if s.Relation == nil {
			return fmt.Errorf("crud: the micropost service requires the relation service")
		}
		s.Micropost = NewMicropostService(s.db, s.Relation)
		return nil
	}
}

// Ping checks that the database connection is alive.
func (s *Services) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

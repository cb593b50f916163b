package crud

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"microposts/domain"
	"microposts/errs"
)

// MicropostService manages Microposts.
// It implements the domain.MicropostService interface.
type MicropostService struct {
	micropostValidator
	relations domain.RelationService
}

// micropostValidator runs validations on incoming Micropost data.
// On success, it passes the data on to micropostGorm.
type micropostValidator struct {
	micropostGorm
}

// micropostGorm runs CRUD operations on the database using incoming Micropost data.
type micropostGorm struct {
	db *gorm.DB
}

// NewMicropostService returns an instance of MicropostService. The relation
// service is used to drop the favorites of deleted microposts.
func NewMicropostService(db *gorm.DB, relations domain.RelationService) *MicropostService {
	return &MicropostService{
		micropostValidator: micropostValidator{
			micropostGorm{
				db: db,
			},
		},
		relations: relations,
	}
}

// Ensure the MicropostService struct properly implements the domain.MicropostService interface.
var _ domain.MicropostService = &MicropostService{}

// Delete deletes the micropost and every favorite pointing at it.
func (ms *MicropostService) Delete(ctx context.Context, post *domain.Micropost) error {
	if err := ms.micropostValidator.Delete(ctx, post); err != nil {
		return err
	}
	_, err := ms.relations.RemoveAllForTarget(ctx, domain.KindFavorite, post.ID)
	return err
}

// Create runs validations needed for creating new Micropost database records.
func (mv *micropostValidator) Create(ctx context.Context, post *domain.Micropost) error {
	err := runMicropostValFns(post,
		mv.userIdValid,
		mv.contentMinLength,
		mv.contentMaxLength)
	if err != nil {
		return err
	}
	return mv.micropostGorm.Create(ctx, post)
}

// Delete runs validations needed for deleting existing Micropost database records.
func (mv *micropostValidator) Delete(ctx context.Context, post *domain.Micropost) error {
	if err := runMicropostValFns(post, mv.idValid); err != nil {
		return err
	}
	return mv.micropostGorm.Delete(ctx, post)
}

// Feed validates the user ID and page before reading the feed.
func (mv *micropostValidator) Feed(ctx context.Context, userID int, page domain.Page) ([]domain.Micropost, error) {
	if userID <= 0 {
		return nil, errs.UserIdInvalid
	}
	page.Offset, page.Limit = normalizePage(page.Offset, page.Limit)
	return mv.micropostGorm.Feed(ctx, userID, page)
}

// runMicropostValFns runs any number of functions of type micropostValFn on the passed in Micropost.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runMicropostValFns(post *domain.Micropost, fns ...micropostValFn) error {
	for _, fn := range fns {
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

// A micropostValFn is any function that takes in a pointer to a domain.Micropost object and returns an error.
type micropostValFn func(post *domain.Micropost) error

// contentMinLength makes sure that the content is not blank.
func (mv *micropostValidator) contentMinLength(post *domain.Micropost) error {
	if strings.TrimSpace(post.Content) == "" {
		return errs.Errorf(errs.EINVALID, "Micropost content must not be empty.")
	}
	return nil
}

// contentMaxLength makes sure that the content does not exceed domain.MaxContentLength characters.
func (mv *micropostValidator) contentMaxLength(post *domain.Micropost) error {
	if utf8.RuneCountInString(post.Content) > domain.MaxContentLength {
		return errs.Errorf(errs.EINVALID, "Micropost content max length is %d characters.", domain.MaxContentLength)
	}
	return nil
}

func (mv *micropostValidator) idValid(post *domain.Micropost) error {
	if post.ID <= 0 {
		return errs.IdInvalid
	}
	return nil
}

func (mv *micropostValidator) userIdValid(post *domain.Micropost) error {
	if post.UserID <= 0 {
		return errs.UserIdInvalid
	}
	return nil
}

// ByID retrieves a Micropost along with its author.
func (mg *micropostGorm) ByID(ctx context.Context, id int) (*domain.Micropost, error) {
	if id <= 0 {
		return nil, errs.IdInvalid
	}
	var post domain.Micropost
	err := mg.db.WithContext(ctx).Preload("User").First(&post, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The micropost does not exist.")
		}
		return nil, err
	}
	return &post, nil
}

// ByIDs retrieves the microposts with the given IDs, with their authors, in the order of ids.
// IDs without a matching record are skipped.
func (mg *micropostGorm) ByIDs(ctx context.Context, ids []int) ([]domain.Micropost, error) {
	if len(ids) == 0 {
		return []domain.Micropost{}, nil
	}
	var found []domain.Micropost
	if err := mg.db.WithContext(ctx).Preload("User").Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[int]domain.Micropost, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]domain.Micropost, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// Feed returns the microposts written by the user or by anyone the user follows, newest first.
func (mg *micropostGorm) Feed(ctx context.Context, userID int, page domain.Page) ([]domain.Micropost, error) {
	followed := mg.db.Model(&domain.Follow{}).Select("follow_id").Where("user_id = ?", userID)
	var posts []domain.Micropost
	err := mg.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? OR user_id IN (?)", userID, followed).
		Order("created_at DESC").
		Order("id DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// CountByUser returns the number of microposts written by the user.
func (mg *micropostGorm) CountByUser(ctx context.Context, userID int) (int64, error) {
	var n int64
	err := mg.db.WithContext(ctx).Model(&domain.Micropost{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Create stores the data from the Micropost object in a new database record.
func (mg *micropostGorm) Create(ctx context.Context, post *domain.Micropost) error {
	return mg.db.WithContext(ctx).Omit("User").Create(post).Error
}

// Delete permanently deletes the micropost's database record.
func (mg *micropostGorm) Delete(ctx context.Context, post *domain.Micropost) error {
	res := mg.db.WithContext(ctx).Delete(&domain.Micropost{}, post.ID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The micropost does not exist.")
	}
	return nil
}

package crud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"microposts/domain"
	"microposts/errs"
	pkglog "microposts/log"
)

// RelationService manages the follow and favorite relationships.
// It implements the domain.RelationService interface. On top of the
// validated database operations it keeps the optional count cache
// up to date and publishes an event whenever an edge is added or removed.
type RelationService struct {
	relationValidator
	cache     domain.CountCache
	publisher domain.EventPublisher
}

// relationValidator runs validations on incoming edge data.
// On success, it passes the data on to relationGorm.
// Otherwise, it returns the error of the validation that has failed.
type relationValidator struct {
	relationGorm
}

// relationGorm runs queries against the junction tables.
// It assumes that data has been validated.
type relationGorm struct {
	db *gorm.DB
}

// NewRelationService returns an instance of RelationService.
// cache and publisher may be nil, which disables them.
func NewRelationService(db *gorm.DB, cache domain.CountCache, publisher domain.EventPublisher) *RelationService {
	return &RelationService{
		relationValidator: relationValidator{
			relationGorm{
				db: db,
			},
		},
		cache:     cache,
		publisher: publisher,
	}
}

// Ensure the RelationService struct properly implements the domain.RelationService interface.
var _ domain.RelationService = &RelationService{}

// relation describes the junction table backing a domain.Kind.
type relation struct {
	kind         domain.Kind
	table        string
	actorColumn  string
	targetColumn string
	targetTable  string
	// rejectSelf forbids edges whose actor is also their target.
	rejectSelf bool
	// row builds the gorm model of a single edge.
	row func(actorID, targetID int) interface{}
}

var relations = map[domain.Kind]relation{
	domain.KindFollow: {
		kind:         domain.KindFollow,
		table:        domain.Follow{}.TableName(),
		actorColumn:  "user_id",
		targetColumn: "follow_id",
		targetTable:  "users",
		rejectSelf:   true,
		row: func(actorID, targetID int) interface{} {
			return &domain.Follow{UserID: actorID, FollowID: targetID}
		},
	},
	domain.KindFavorite: {
		kind:         domain.KindFavorite,
		table:        domain.Favorite{}.TableName(),
		actorColumn:  "user_id",
		targetColumn: "micropost_id",
		targetTable:  "microposts",
		row: func(actorID, targetID int) interface{} {
			return &domain.Favorite{UserID: actorID, MicropostID: targetID}
		},
	},
}

func relationFor(kind domain.Kind) (relation, error) {
	rel, ok := relations[kind]
	if !ok {
		return relation{}, errs.KindInvalid
	}
	return rel, nil
}

func (rel relation) column(side domain.Side) (string, error) {
	switch side {
	case domain.SideActor:
		return rel.actorColumn, nil
	case domain.SideTarget:
		return rel.targetColumn, nil
	}
	return "", errs.Errorf(errs.EINVALID, "Unknown relation side.")
}

// errSelfReference is returned by the notSelfReference validation. Add turns it
// into a plain false result: a rejected self-reference is not an error.
var errSelfReference = errors.New("crud: actor and target are the same")

// Add creates the edge unless it already exists or is a rejected self-reference.
// It returns true only if a new edge has been stored.
func (rs *RelationService) Add(ctx context.Context, kind domain.Kind, actorID, targetID int) (bool, error) {
	added, err := rs.relationValidator.Add(ctx, kind, actorID, targetID)
	if err != nil {
		return false, err
	}
	logToggle(ctx, "add", kind, actorID, targetID, added)
	if added {
		rs.afterChange(ctx, kind, actorID, targetID, domain.ActionAdded)
	}
	return added, nil
}

// Remove deletes the edge if it exists. It returns true only if an edge has been deleted.
func (rs *RelationService) Remove(ctx context.Context, kind domain.Kind, actorID, targetID int) (bool, error) {
	removed, err := rs.relationValidator.Remove(ctx, kind, actorID, targetID)
	if err != nil {
		return false, err
	}
	logToggle(ctx, "remove", kind, actorID, targetID, removed)
	if removed {
		rs.afterChange(ctx, kind, actorID, targetID, domain.ActionRemoved)
	}
	return removed, nil
}

// Count returns the number of edges of the given kind on one side of id,
// e.g. (follow, actor, 1) is the number of users that user 1 follows.
// Counts are served from the cache when possible.
func (rs *RelationService) Count(ctx context.Context, kind domain.Kind, side domain.Side, id int) (int64, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return 0, err
	}
	column, err := rel.column(side)
	if err != nil {
		return 0, err
	}
	l := pkglog.Ctx(ctx)
	key := CountKey(kind, side, id)

	if rs.cache != nil {
		n, found, err := rs.cache.Get(ctx, key)
		if err != nil {
			l.Warn().Err(err).Str("key", key).Msg("count cache get failed, falling back to db")
		} else if found {
			return n, nil
		}
	}

	n, err := rs.relationGorm.count(ctx, rel, column, id)
	if err != nil {
		return 0, err
	}

	if rs.cache != nil {
		if err := rs.cache.Set(ctx, key, n); err != nil {
			l.Warn().Err(err).Str("key", key).Msg("count cache set failed")
		}
	}
	return n, nil
}

// RemoveAllForTarget deletes every edge pointing at targetID, e.g. all
// favorites of a micropost that is being deleted. It returns the number
// of deleted edges.
func (rs *RelationService) RemoveAllForTarget(ctx context.Context, kind domain.Kind, targetID int) (int64, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return 0, err
	}
	if targetID <= 0 {
		return 0, errs.IdInvalid
	}
	actorIDs, err := rs.relationGorm.actorsOf(ctx, rel, targetID)
	if err != nil {
		return 0, err
	}
	n, err := rs.relationGorm.deleteByTarget(ctx, rel, targetID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if rs.cache != nil {
		keys := []string{CountKey(kind, domain.SideTarget, targetID)}
		for _, id := range actorIDs {
			keys = append(keys, CountKey(kind, domain.SideActor, id))
		}
		if err := rs.cache.Delete(ctx, keys...); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Int(pkglog.FieldTargetID, targetID).Msg("count cache invalidation failed")
		}
	}
	for _, id := range actorIDs {
		rs.publish(ctx, kind, id, targetID, domain.ActionRemoved)
	}
	return n, nil
}

// afterChange updates the cached counts of both ends of the edge and announces the change.
func (rs *RelationService) afterChange(ctx context.Context, kind domain.Kind, actorID, targetID int, action string) {
	if rs.cache != nil {
		l := pkglog.Ctx(ctx)
		for _, key := range []string{
			CountKey(kind, domain.SideActor, actorID),
			CountKey(kind, domain.SideTarget, targetID),
		} {
			var err error
			if action == domain.ActionAdded {
				err = rs.cache.CondIncr(ctx, key)
			} else {
				err = rs.cache.CondDecr(ctx, key)
			}
			if err != nil {
				l.Warn().Err(err).Str("key", key).Msg("count cache update failed")
			}
		}
	}
	rs.publish(ctx, kind, actorID, targetID, action)
}

func (rs *RelationService) publish(ctx context.Context, kind domain.Kind, actorID, targetID int, action string) {
	if rs.publisher == nil {
		return
	}
	event := domain.RelationEvent{
		Kind:       kind,
		Action:     action,
		ActorID:    actorID,
		TargetID:   targetID,
		OccurredAt: time.Now().UTC(),
	}
	if err := rs.publisher.Publish(ctx, event); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).
			Str(pkglog.FieldKind, string(kind)).
			Int(pkglog.FieldActorID, actorID).
			Int(pkglog.FieldTargetID, targetID).
			Msg("publishing relation event failed")
	}
}

func logToggle(ctx context.Context, op string, kind domain.Kind, actorID, targetID int, changed bool) {
	l := pkglog.Ctx(ctx)
	l.Debug().
		Str(pkglog.FieldKind, string(kind)).
		Int(pkglog.FieldActorID, actorID).
		Int(pkglog.FieldTargetID, targetID).
		Bool(pkglog.FieldChanged, changed).
		Msg("relation " + op)
}

// CountKey is the cache key of a relationship count.
func CountKey(kind domain.Kind, side domain.Side, id int) string {
	return fmt.Sprintf("microposts:count:%s:%s:%d", kind, side, id)
}

// Add runs the validations needed before storing a new edge.
func (rv *relationValidator) Add(ctx context.Context, kind domain.Kind, actorID, targetID int) (bool, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return false, err
	}
	edge := &domain.Edge{Kind: kind, ActorID: actorID, TargetID: targetID}
	err = runEdgeValFns(ctx, rel, edge,
		rv.actorIdValid,
		rv.targetIdValid,
		rv.notSelfReference,
		rv.targetExists)
	if err == errSelfReference {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return rv.relationGorm.insert(ctx, rel, edge)
}

// Remove runs the validations needed before deleting an edge.
func (rv *relationValidator) Remove(ctx context.Context, kind domain.Kind, actorID, targetID int) (bool, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return false, err
	}
	edge := &domain.Edge{Kind: kind, ActorID: actorID, TargetID: targetID}
	err = runEdgeValFns(ctx, rel, edge, rv.actorIdValid, rv.targetIdValid)
	if err != nil {
		return false, err
	}
	return rv.relationGorm.delete(ctx, rel, edge)
}

// Exists reports whether the edge is currently stored.
func (rv *relationValidator) Exists(ctx context.Context, kind domain.Kind, actorID, targetID int) (bool, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return false, err
	}
	edge := &domain.Edge{Kind: kind, ActorID: actorID, TargetID: targetID}
	err = runEdgeValFns(ctx, rel, edge, rv.actorIdValid, rv.targetIdValid)
	if err != nil {
		return false, err
	}
	return rv.relationGorm.exists(ctx, rel, edge)
}

// ExistsMany reports for each of targetIDs whether actorID holds an edge to it.
func (rv *relationValidator) ExistsMany(ctx context.Context, kind domain.Kind, actorID int, targetIDs []int) (map[int]bool, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return nil, err
	}
	if actorID <= 0 {
		return nil, errs.UserIdInvalid
	}
	return rv.relationGorm.existsMany(ctx, rel, actorID, targetIDs)
}

// ListEdges validates the filter and returns the matching edges, newest first.
func (rv *relationValidator) ListEdges(ctx context.Context, kind domain.Kind, filter domain.EdgeFilter) ([]domain.Edge, error) {
	rel, err := relationFor(kind)
	if err != nil {
		return nil, err
	}
	if (filter.ActorID != nil && *filter.ActorID <= 0) || (filter.TargetID != nil && *filter.TargetID <= 0) {
		return nil, errs.IdInvalid
	}
	filter.Offset, filter.Limit = normalizePage(filter.Offset, filter.Limit)
	return rv.relationGorm.list(ctx, rel, filter)
}

// runEdgeValFns runs any number of functions of type edgeValFn on the passed in Edge object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runEdgeValFns(ctx context.Context, rel relation, edge *domain.Edge, fns ...edgeValFn) error {
	for _, fn := range fns {
		if err := fn(ctx, rel, edge); err != nil {
			return err
		}
	}
	return nil
}

// An edgeValFn is any function that validates an Edge of the given relation.
type edgeValFn func(ctx context.Context, rel relation, edge *domain.Edge) error

// actorIdValid makes sure that the acting user's ID is greater than 0.
func (rv *relationValidator) actorIdValid(ctx context.Context, rel relation, edge *domain.Edge) error {
	if edge.ActorID <= 0 {
		return errs.UserIdInvalid
	}
	return nil
}

// targetIdValid makes sure that the target's ID is greater than 0.
func (rv *relationValidator) targetIdValid(ctx context.Context, rel relation, edge *domain.Edge) error {
	if edge.TargetID <= 0 {
		return errs.IdInvalid
	}
	return nil
}

// notSelfReference rejects edges from a user to themselves for relations that forbid them.
func (rv *relationValidator) notSelfReference(ctx context.Context, rel relation, edge *domain.Edge) error {
	if rel.rejectSelf && edge.ActorID == edge.TargetID {
		return errSelfReference
	}
	return nil
}

// targetExists makes sure that the user to be followed or the micropost to be favorited exists.
func (rv *relationValidator) targetExists(ctx context.Context, rel relation, edge *domain.Edge) error {
	var n int64
	err := rv.db.WithContext(ctx).Table(rel.targetTable).Where("id = ?", edge.TargetID).Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		if rel.kind == domain.KindFollow {
			return errs.Errorf(errs.ENOTFOUND, "The user to be followed does not exist.")
		}
		return errs.Errorf(errs.ENOTFOUND, "The micropost to be favorited does not exist.")
	}
	return nil
}

// insert stores the edge unless it already exists. The composite unique index
// decides between concurrent inserts of the same edge, so at most one of them
// reports true.
func (rg *relationGorm) insert(ctx context.Context, rel relation, edge *domain.Edge) (bool, error) {
	res := rg.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rel.row(edge.ActorID, edge.TargetID))
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// delete permanently deletes the edge's junction row.
func (rg *relationGorm) delete(ctx context.Context, rel relation, edge *domain.Edge) (bool, error) {
	res := rg.db.WithContext(ctx).
		Where(rel.actorColumn+" = ? AND "+rel.targetColumn+" = ?", edge.ActorID, edge.TargetID).
		Delete(rel.row(0, 0))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (rg *relationGorm) exists(ctx context.Context, rel relation, edge *domain.Edge) (bool, error) {
	var n int64
	err := rg.db.WithContext(ctx).Table(rel.table).
		Where(rel.actorColumn+" = ? AND "+rel.targetColumn+" = ?", edge.ActorID, edge.TargetID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (rg *relationGorm) existsMany(ctx context.Context, rel relation, actorID int, targetIDs []int) (map[int]bool, error) {
	result := make(map[int]bool, len(targetIDs))
	for _, id := range targetIDs {
		result[id] = false
	}
	if len(targetIDs) == 0 {
		return result, nil
	}
	var found []int
	err := rg.db.WithContext(ctx).Table(rel.table).
		Where(rel.actorColumn+" = ? AND "+rel.targetColumn+" IN ?", actorID, targetIDs).
		Pluck(rel.targetColumn, &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}

// edgeRow is the shape of a junction row as selected by list.
type edgeRow struct {
	ActorID   int
	TargetID  int
	CreatedAt time.Time
}

func (rg *relationGorm) list(ctx context.Context, rel relation, filter domain.EdgeFilter) ([]domain.Edge, error) {
	q := rg.db.WithContext(ctx).Table(rel.table).
		Select(fmt.Sprintf("%s AS actor_id, %s AS target_id, created_at", rel.actorColumn, rel.targetColumn))
	if filter.ActorID != nil {
		q = q.Where(rel.actorColumn+" = ?", *filter.ActorID)
	}
	if filter.TargetID != nil {
		q = q.Where(rel.targetColumn+" = ?", *filter.TargetID)
	}
	var rows []edgeRow
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	edges := make([]domain.Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, domain.Edge{
			Kind:      rel.kind,
			ActorID:   row.ActorID,
			TargetID:  row.TargetID,
			CreatedAt: row.CreatedAt,
		})
	}
	return edges, nil
}

func (rg *relationGorm) count(ctx context.Context, rel relation, column string, id int) (int64, error) {
	var n int64
	err := rg.db.WithContext(ctx).Table(rel.table).Where(column+" = ?", id).Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (rg *relationGorm) actorsOf(ctx context.Context, rel relation, targetID int) ([]int, error) {
	var ids []int
	err := rg.db.WithContext(ctx).Table(rel.table).
		Where(rel.targetColumn+" = ?", targetID).
		Pluck(rel.actorColumn, &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (rg *relationGorm) deleteByTarget(ctx context.Context, rel relation, targetID int) (int64, error) {
	res := rg.db.WithContext(ctx).Where(rel.targetColumn+" = ?", targetID).Delete(rel.row(0, 0))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

const (
	// DefaultPageLimit is used when a listing does not ask for a limit.
	DefaultPageLimit = 20
	// MaxPageLimit caps the size of a listing.
	MaxPageLimit = 100
)

// normalizePage clamps offset and limit to sane values.
func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return offset, limit
}

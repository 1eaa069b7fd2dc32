package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jacentio/docpointer/internal/keys"
)

var tracer = otel.Tracer("github.com/jacentio/docpointer/store")

const (
	createCondition = "attribute_not_exists(pk) AND attribute_not_exists(sk)"
	existsCondition = "attribute_exists(pk) AND attribute_exists(sk)"

	// pingPartition is never written; querying it proves the table answers.
	pingPartition = "D#NULL"
)

// Repository stores document pointers in a single DynamoDB table.
// It holds no mutable state after construction and is safe for concurrent use.
type Repository struct {
	client  Client
	config  Config
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a Repository over client.
func New(client Client, config Config) *Repository {
	config.validate()
	return &Repository{
		client: client,
		config: config,
		logger: slog.Default(),
	}
}

// SetLogger sets the logger. nil restores slog.Default().
func (r *Repository) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	r.logger = logger
}

// SetMetrics sets the metrics sink. nil disables metrics.
func (r *Repository) SetMetrics(metrics *Metrics) {
	r.metrics = metrics
}

// Config returns the validated configuration.
func (r *Repository) Config() Config {
	return r.config
}

// Create writes p only if no pointer with the same (pk, sk) exists.
func (r *Repository) Create(ctx context.Context, p *DocumentPointer) (err error) {
	ctx, done := r.begin(ctx, "create", attribute.String("docpointer.id", p.ID))
	defer func() { done(err) }()

	r.logger.DebugContext(ctx, "creating document pointer", "pk", p.PK, "sk", p.SK)

	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("%w: marshal pointer %s: %w", ErrInternal, p.ID, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String(createCondition),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrAlreadyExists
		}
		return r.internal(ctx, "create", p.ID, err)
	}

	p.fromStore = true
	return nil
}

// GetByID fetches a pointer through the doc_key index. It returns ErrNotFound
// when no pointer has the id and ErrDuplicateLookupKey when several do.
func (r *Repository) GetByID(ctx context.Context, id string) (p *DocumentPointer, err error) {
	ctx, done := r.begin(ctx, "get", attribute.String("docpointer.id", id))
	defer func() { done(err) }()

	docKey, err := keys.LookupKeyForID(id)
	if err != nil {
		return nil, err
	}

	var found []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(r.client, lookupInput(r.config, docKey))
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, r.internal(ctx, "get", id, err)
		}
		found = append(found, page.Items...)
	}

	switch len(found) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return r.decode(ctx, found[0])
	default:
		r.logger.ErrorContext(ctx, "lookup key matched several pointers",
			"doc_key", docKey, "count", len(found))
		return nil, fmt.Errorf("%w: %s matched %d items", ErrDuplicateLookupKey, id, len(found))
	}
}

// CountByNHSNumber counts a patient's pointers, optionally narrowed to
// pointerTypes.
func (r *Repository) CountByNHSNumber(ctx context.Context, nhsNumber string, pointerTypes []string) (total int, err error) {
	ctx, done := r.begin(ctx, "count", attribute.Int("docpointer.types", len(pointerTypes)))
	defer func() { done(err) }()

	q, shape, err := newPointerQuery(nhsNumber, "", pointerTypes)
	if err != nil {
		return 0, err
	}
	in := q.input(r.config)
	in.Select = types.SelectCount

	r.logger.DebugContext(ctx, "counting document pointers", "shape", shape.String())

	paginator := dynamodb.NewQueryPaginator(r.client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, r.internal(ctx, "count", "", err)
		}
		total += int(page.Count)
	}
	return total, nil
}

// Search returns a patient's pointers, optionally narrowed to a custodian and
// to pointerTypes, in store order. The query runs when the sequence is ranged
// over and again from the start on every range. A page failure or a stored
// pointer that fails to re-parse ends the sequence with an error.
func (r *Repository) Search(ctx context.Context, nhsNumber, custodian string, pointerTypes []string) iter.Seq2[*DocumentPointer, error] {
	return func(yield func(*DocumentPointer, error) bool) {
		var err error
		ctx, done := r.begin(ctx, "search", attribute.Int("docpointer.types", len(pointerTypes)))
		defer func() { done(err) }()

		q, shape, err := newPointerQuery(nhsNumber, custodian, pointerTypes)
		if err != nil {
			yield(nil, err)
			return
		}

		r.logger.DebugContext(ctx, "searching document pointers", "shape", shape.String())

		paginator := dynamodb.NewQueryPaginator(r.client, q.input(r.config))
		for paginator.HasMorePages() {
			var page *dynamodb.QueryOutput
			page, err = paginator.NextPage(ctx)
			if err != nil {
				err = r.internal(ctx, "search", "", err)
				yield(nil, err)
				return
			}
			for _, item := range page.Items {
				var p *DocumentPointer
				p, err = r.decode(ctx, item)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(p, nil) {
					return
				}
			}
		}
	}
}

// Update replaces an existing pointer in place. A missing (pk, sk) is an
// internal error: callers confirm existence before updating. There is no
// version check, so the last writer wins.
func (r *Repository) Update(ctx context.Context, p *DocumentPointer) (err error) {
	ctx, done := r.begin(ctx, "update", attribute.String("docpointer.id", p.ID))
	defer func() { done(err) }()

	r.logger.DebugContext(ctx, "updating document pointer", "pk", p.PK, "sk", p.SK)

	next := *p
	next.Version++
	next.UpdatedOn = now().UTC().Format(time.RFC3339)

	item, err := attributevalue.MarshalMap(&next)
	if err != nil {
		return fmt.Errorf("%w: marshal pointer %s: %w", ErrInternal, p.ID, err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.config.TableName),
		Item:                item,
		ConditionExpression: aws.String(existsCondition),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			r.logger.ErrorContext(ctx, "update of missing document pointer", "id", p.ID)
			return fmt.Errorf("%w: update %s", ErrPointerMissing, p.ID)
		}
		return r.internal(ctx, "update", p.ID, err)
	}

	next.fromStore = true
	*p = next
	return nil
}

// DeleteOptions configures delete behavior.
type DeleteOptions struct {
	// IgnoreFailure swallows the failure after logging and counting it.
	IgnoreFailure bool
}

// Delete removes p only if its (pk, sk) exists.
func (r *Repository) Delete(ctx context.Context, p *DocumentPointer, opts DeleteOptions) (err error) {
	ctx, done := r.begin(ctx, "delete", attribute.String("docpointer.id", p.ID))
	defer func() { done(err) }()

	r.logger.DebugContext(ctx, "deleting document pointer", "pk", p.PK, "sk", p.SK)

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.config.TableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: p.PK},
			"sk": &types.AttributeValueMemberS{Value: p.SK},
		},
		ConditionExpression: aws.String(existsCondition),
	})
	if err == nil {
		return nil
	}

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		err = fmt.Errorf("%w: delete %s", ErrPointerMissing, p.ID)
	} else {
		err = fmt.Errorf("%w: delete %s: %w", ErrInternal, p.ID, err)
	}
	return r.deleteFailed(ctx, p.ID, err, opts.IgnoreFailure)
}

// Save creates p, or updates it when it was read from or written to the table.
func (r *Repository) Save(ctx context.Context, p *DocumentPointer) error {
	if p.FromStore() {
		return r.Update(ctx, p)
	}
	return r.Create(ctx, p)
}

// SupersedeOptions configures supersede behavior.
type SupersedeOptions struct {
	// IgnoreDeleteFailure leaves a retired pointer in place when it cannot be
	// found or deleted, instead of failing.
	IgnoreDeleteFailure bool
}

// Supersede creates p and then deletes each pointer in retiredIDs in turn,
// skipping p's own id. It is not atomic: p is always written first, so a
// failed delete leaves the new and old pointers visible together. A create
// failure aborts before any delete.
func (r *Repository) Supersede(ctx context.Context, p *DocumentPointer, retiredIDs []string, opts SupersedeOptions) (err error) {
	ctx, done := r.begin(ctx, "supersede",
		attribute.String("docpointer.id", p.ID),
		attribute.StringSlice("docpointer.retired_ids", retiredIDs))
	defer func() { done(err) }()

	if err := r.Create(ctx, p); err != nil {
		return err
	}

	for _, id := range retiredIDs {
		if id == p.ID {
			r.logger.WarnContext(ctx, "pointer lists itself as replaced", "id", id)
			continue
		}
		old, err := r.GetByID(ctx, id)
		if err != nil {
			if err := r.deleteFailed(ctx, id, fmt.Errorf("%w: resolve retired pointer %s: %w", ErrInternal, id, err), opts.IgnoreDeleteFailure); err != nil {
				return err
			}
			continue
		}
		if err := r.Delete(ctx, old, DeleteOptions{IgnoreFailure: opts.IgnoreDeleteFailure}); err != nil {
			return err
		}
	}
	return nil
}

// Ping issues a minimal query to prove the table is reachable.
func (r *Repository) Ping(ctx context.Context) (err error) {
	ctx, done := r.begin(ctx, "ping")
	defer func() { done(err) }()

	_, err = r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.config.TableName),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pingPartition},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return r.internal(ctx, "ping", "", err)
	}
	return nil
}

// decode unmarshals a stored item and re-parses its document.
func (r *Repository) decode(ctx context.Context, item map[string]types.AttributeValue) (*DocumentPointer, error) {
	var p DocumentPointer
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		r.logger.ErrorContext(ctx, "stored item failed to unmarshal", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCorruptPointer, err)
	}
	if _, err := p.Resource(); err != nil {
		r.logger.ErrorContext(ctx, "stored document failed to parse", "id", p.ID, "error", err)
		return nil, err
	}
	p.fromStore = true
	return &p, nil
}

// deleteFailed either returns err or, when ignore is set, records it as an
// ignored failure.
func (r *Repository) deleteFailed(ctx context.Context, id string, err error, ignore bool) error {
	if !ignore {
		r.logger.ErrorContext(ctx, "document pointer delete failed", "id", id, "error", err)
		return err
	}
	r.logger.WarnContext(ctx, "ignoring document pointer delete failure", "id", id, "error", err)
	r.metrics.ignoredDeleteFailure()
	trace.SpanFromContext(ctx).AddEvent("ignored delete failure",
		trace.WithAttributes(attribute.String("docpointer.id", id)))
	return nil
}

// internal logs a store failure and wraps it as ErrInternal.
func (r *Repository) internal(ctx context.Context, op, id string, err error) error {
	r.logger.ErrorContext(ctx, "document pointer store failure",
		"operation", op, "id", id, "table", r.config.TableName, "error", err)
	if id == "" {
		return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrInternal, op, id, err)
}

// begin starts a span for op and returns a function that ends it and
// records the outcome.
func (r *Repository) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Repository."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
		}
		span.End()
		r.metrics.observe(op, start, err)
	}
}

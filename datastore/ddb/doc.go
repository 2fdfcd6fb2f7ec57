/*
Package ddb provides a DynamoDB implementation of the datastore.Table interface.

A Table binds an API client to one table and its key schema:

	schema, _ := ddb.NewKeySchema(
	    map[string]string{"PK": "string"},
	    map[string]string{"SK": "number"},
	)
	orders := ddb.NewTable(client, "orders", schema,
	    ddb.WithIndex("ByStatus", statusSchema),
	    ddb.WithBatchSize(50),
	)

Items are plain maps. Values may be native Go values or already in the
tagged wire form ({"S": "x"}, {"N": "1"}); both are normalized before they
reach DynamoDB, and items read back are decoded to native values with
numbers as json.Number.

Queries:
Predicates are written against real attribute names. Names are aliased and
values are bound to placeholders when the query is built:

	items, err := orders.Query("PK = :pk AND SK BETWEEN :lo AND :hi").
	    Values(map[string]any{"pk": "USER#1", "lo": 1, "hi": 10}).
	    Filter("status = :status").
	    Value("status", "open").
	    Project("SK", "total").
	    All(ctx)

Reads are lazy. Iter returns a paginate.Iterator that fetches one page at a
time; Page returns a single page with an opaque token for the next one.

Streaming:
Stream delivers results on a channel and retries throttled pages:

	results := orders.Query("PK = :pk").Value("pk", "USER#1").Stream(ctx,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        log.Info().Int64("items", p.ItemsProcessed).Msg("progress")
	    }),
	)

When an ErrorHandler returns true for a failed page, the stream resumes from
the last item delivered.
*/
package ddb

/*
Package datastore defines the core interface for ddbquery's table clients.

The main interface is Table, which provides item operations keyed by primary
key attributes and paginated reads driven by compiled expressions:

	type Table interface {
	    Name() string
	    Get(ctx context.Context, key map[string]any) (map[string]any, error)
	    Put(ctx context.Context, item map[string]any) error
	    Delete(ctx context.Context, key map[string]any) error
	    Update(ctx context.Context, key, updates map[string]any, condition string, values map[string]any) (map[string]any, error)
	    Iterate(ctx context.Context, params *storagemodels.QueryParams) *paginate.Iterator
	    Stream(ctx context.Context, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[map[string]any]
	}

Implementations:
  - ddb: DynamoDB implementation over the AWS SDK v2 client
  - mock: in-memory DynamoDB API used to exercise ddb in tests
*/
package datastore

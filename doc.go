/*
Package ddbquery compiles human-readable predicates into DynamoDB query
requests and reads the results lazily, page by page.

The library is layered:
  - attrvalue converts between native Go values, the tagged wire form and
    the SDK's AttributeValue union
  - expression aliases attribute names, binds placeholder values and
    compiles key conditions, filters, projections and updates
  - paginate drives a stateful iterator over any page fetch function
  - datastore/ddb binds it all to a DynamoDB table client
  - config loads YAML and environment settings

Basic Usage:

	cfg, _ := config.Load("ddbquery.yaml")
	catalog, _ := ddbquery.Open(ctx, cfg)
	orders, _ := ddbquery.Lookup[*ddb.Table](catalog, "orders")

	it := orders.Query("PK = :pk AND SK BETWEEN :lo AND :hi").
	    Values(map[string]any{"pk": "USER#1", "lo": 1, "hi": 100}).
	    Iter(ctx)
	for it.Next(ctx) {
	    fmt.Println(it.Item())
	}
	if err := it.Err(); err != nil {
	    return err
	}
*/
package ddbquery

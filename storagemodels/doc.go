/*
Package storagemodels defines the data structures shared by the query
builder, the table clients and the streaming API.

Key Types:

QueryParams:
A fully compiled, paginated read request:

	expr, _ := expression.Compile("PK = :pk", "Status = :status",
	    map[string]any{"pk": "USER#123", "status": "active"})
	params := &QueryParams{
	    Operation:  OperationQuery,
	    TableName:  "my-table",
	    IndexName:  aws.String("GSI1"),
	    Expression: expr,
	    Limit:      100,
	}

StreamResult:
Results from streaming operations with metadata:

	for r := range results {
	    if r.Error != nil {
	        // r.Raw is set when only this item failed to decode
	        continue
	    }
	    fmt.Println(r.Meta.Index, r.Item)
	}

StreamOptions:
Configuration for streaming behavior, applied over DefaultStreamOptions:

	opts := NewStreamOptions(
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	)
*/
package storagemodels

/*
Package errors provides semantic error types for the ddbquery library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Codec and compiler errors:

	var (
	    ErrUnsupportedValue         = errors.New("unsupported value")
	    ErrUnrecognizedAttributeTag = errors.New("unrecognized attribute tag")
	    ErrUnparsableStatement      = errors.New("unparsable statement")
	    ErrEmptyKeyCondition        = errors.New("key condition expression is empty")
	    ErrMissingValue             = errors.New("missing expression value")
	)

Store errors:

	var (
	    ErrNotFound        = errors.New("item not found")
	    ErrAlreadyExists   = errors.New("item already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	)

Usage:

	expr, err := expression.Compile("status = :status AND !!!", "", values)
	if err != nil {
	    var stmt *errors.UnparsableStatementError
	    if stdErrors.As(err, &stmt) {
	        return fmt.Errorf("fix your query near %q", stmt.Statement)
	    }
	    return err
	}

	item, err := table.Get(ctx, map[string]any{"pk": "USER#1"})
	if errors.IsNotFound(err) {
	    // Handle not found case
	}

None of these errors are retried by the library. They are surfaced to the
caller with the offending value or statement attached, and they keep matching
their sentinel after being wrapped with fmt.Errorf("...: %w", err).
*/
package errors

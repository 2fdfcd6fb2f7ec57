/*
Package config loads ddbquery configuration.

Settings come from a YAML file layered over defaults, with a .env file and
the process environment taking precedence:

	aws:
	  region: eu-west-1
	  endpoint: http://localhost:8000
	logging:
	  enabled: true
	  level: debug
	  format: console
	retry:
	  maxRetries: 5
	  backoff: 250ms
	batchSize: 100
	tables:
	  - name: orders
	    hashKey: {name: PK, type: string}
	    rangeKey: {name: SK, type: number}
	    indexes:
	      - name: ByStatus
	        hashKey: {name: status, type: string}
	        rangeKey: {name: SK, type: number}

AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, DDBQUERY_ENDPOINT and
DDBQUERY_LOG_LEVEL override the matching file settings.
*/
package config

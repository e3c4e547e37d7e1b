package database

// Regenerate sqlc/schema.sql from the migrations, then the query layer:
//
//	go generate ./internal/database
//
// Verify the checked-in schema matches the migrations without rewriting it:
//
//	go run ./internal/database/tools/generate_schema.go -check

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"

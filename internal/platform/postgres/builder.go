package postgres

import (
	"github.com/Masterminds/squirrel"
)

// psql builds statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

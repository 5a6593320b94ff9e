package repository

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	dialectPostgres = "postgres"

	tableZones    = "zones"
	tableBookings = "bookings"
	tableRequests = "booking_requests"
)

var pg = goqu.Dialect(dialectPostgres)

var zoneColumns = []string{
	"id", "unique_identifier", "city", "market", "main_macrozone", "adjacent_macrozone",
	"equipment", "dimensions", "supplier", "brand", "status", "category",
	"created_at", "updated_at",
}

// col returns a column identifier, qualified by alias when one is given
func col(alias, name string) exp.IdentifierExpression {
	if alias == "" {
		return goqu.C(name)
	}
	return goqu.T(alias).Col(name)
}

func zoneSelectColumns(alias string) []interface{} {
	cols := make([]interface{}, len(zoneColumns))
	for i, c := range zoneColumns {
		cols[i] = col(alias, c)
	}
	return cols
}

// zoneConditions translates a ZoneFilter into WHERE expressions
func zoneConditions(f *ZoneFilter, alias string) []exp.Expression {
	var conds []exp.Expression

	in := func(column string, values []string) {
		if len(values) > 0 {
			conds = append(conds, col(alias, column).In(values))
		}
	}
	in("city", f.Cities)
	in("market", f.Markets)
	in("equipment", f.Equipment)
	in("supplier", f.Suppliers)
	in("category", f.Categories)

	if len(f.Macrozones) > 0 {
		conds = append(conds, goqu.Or(
			col(alias, "main_macrozone").In(f.Macrozones),
			col(alias, "adjacent_macrozone").In(f.Macrozones),
		))
	}

	if f.Status != "" {
		conds = append(conds, col(alias, "status").Eq(string(f.Status)))
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		conds = append(conds, goqu.Or(
			col(alias, "unique_identifier").ILike(pattern),
			col(alias, "city").ILike(pattern),
			col(alias, "market").ILike(pattern),
			col(alias, "main_macrozone").ILike(pattern),
			col(alias, "adjacent_macrozone").ILike(pattern),
		))
	}

	return conds
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func zoneListQuery(f *ZoneFilter) (string, []interface{}, error) {
	ds := pg.From(tableZones).Prepared(true).
		Select(zoneSelectColumns("")...).
		Where(zoneConditions(f, "")...).
		Order(goqu.C("unique_identifier").Asc())
	if f.Limit > 0 {
		ds = ds.Limit(uint(f.Limit)).Offset(uint(f.Offset))
	}
	return ds.ToSQL()
}

func zoneCountQuery(f *ZoneFilter) (string, []interface{}, error) {
	return pg.From(tableZones).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(zoneConditions(f, "")...).
		ToSQL()
}

// zoneExportQuery joins every matching zone with its most recent booking
func zoneExportQuery(f *ZoneFilter) (string, []interface{}, error) {
	latest := pg.From(tableBookings).
		Select("id", "status", "booking_request_id").
		Where(goqu.I("bookings.zone_id").Eq(goqu.I("z.id"))).
		Order(goqu.I("bookings.seq").Desc()).
		Limit(1).
		As("lb")

	cols := zoneSelectColumns("z")
	cols = append(cols, goqu.I("lb.id"), goqu.I("lb.status"), goqu.I("lb.booking_request_id"))

	return pg.From(goqu.T(tableZones).As("z")).Prepared(true).
		Select(cols...).
		LeftJoin(goqu.Lateral(latest), goqu.On(goqu.L("true"))).
		Where(zoneConditions(f, "z")...).
		Order(goqu.I("z.unique_identifier").Asc()).
		ToSQL()
}

// Package presto is a client and database/sql driver for Presto and Trino
// coordinators that understands the engine's type signatures.
//
// Every result column carries its type as text, such as
// "row(id bigint,tags array(varchar(10)))", and usually also in a structured
// form. The driver parses both with package typesig and uses the parsed
// signature to convert values and to report column metadata.
//
// # Getting Started
//
//	client, err := presto.NewClient("http://coordinator:8080")
//	if err != nil {
//	    return err
//	}
//	session := client.NewSession().Catalog("hive").Schema("web")
//	results, _, err := session.Query(ctx, "SELECT * FROM clicks")
//
// # database/sql
//
// The driver registers itself as "presto" and as "trino":
//
//	db, err := sql.Open("presto", "presto://user@coordinator:8080/hive/web?timezone=UTC")
//
// Array, map and row values are returned as JSON text. Rows become objects
// keyed by field name; anonymous fields are named field0, field1 and so on.
// Scan them with NullSlice, NullMap and NullRow.
//
// # Sessions
//
// A Session holds the catalog, schema, user, session properties and open
// transaction. Sessions are safe for concurrent use and Clone copies one:
//
//	staging := session.Clone().Schema("staging")
//
// # Result Streaming
//
// Results arrive as a chain of batches. Drain hands each to a callback:
//
//	err = results.Drain(ctx, func(qr *presto.QueryResults) error {
//	    rows, err := qr.Rows()
//	    ...
//	})
package presto

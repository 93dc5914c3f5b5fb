package presto_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/prestotest"
)

func ExampleSession_Query() {
	mock := prestotest.NewMockPrestoServer()
	defer mock.Close()
	mock.AddTable("hive.web.clicks", "id", "bigint", "referrer", "row(host varchar,path varchar)")

	client, err := presto.NewClient(mock.URL())
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession().Catalog("hive").Schema("web")

	ctx := context.Background()
	results, _, err := session.Query(ctx, "SHOW COLUMNS FROM hive.web.clicks")
	if err != nil {
		log.Fatal(err)
	}
	err = results.Drain(ctx, func(qr *presto.QueryResults) error {
		rows, err := qr.Rows()
		for _, row := range rows {
			fmt.Println(row[0], row[1])
		}
		return err
	})
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// id bigint
	// referrer row(host varchar,path varchar)
}

func ExampleNullRow() {
	mock := prestotest.NewMockPrestoServer()
	defer mock.Close()
	mock.AddQuery(&prestotest.MockQueryTemplate{
		SQL:         "SELECT referrer FROM clicks",
		Columns:     prestotest.Columns("referrer", "row(host varchar,path varchar)"),
		Data:        [][]any{{[]any{"example.com", "/docs"}}},
		DataBatches: 1,
	})

	db, err := sql.Open("presto", mock.DSN("presto", "/hive/web"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	type referrer struct {
		Host string `json:"host"`
		Path string `json:"path"`
	}
	var r presto.NullRow[referrer]
	if err := db.QueryRow("SELECT referrer FROM clicks").Scan(&r); err != nil {
		log.Fatal(err)
	}
	fmt.Println(r.Row.Host + r.Row.Path)
	// Output: example.com/docs
}

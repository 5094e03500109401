/*
 * Copyright 2019 The CovenantSQL Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/CovenantSQL/multidb/conf"
	"github.com/CovenantSQL/multidb/metric"
	"github.com/CovenantSQL/multidb/multidb"
	"github.com/CovenantSQL/multidb/utils"
	"github.com/CovenantSQL/multidb/utils/log"
)

const name = "cql-multidb"

var (
	version     = "unknown"
	configFile  string
	query       string
	insertTable string
	binds       bindFlags
	sortColumn  string
	direction   string
	limit       int
	offset      int
	genGUID     bool
	metricWeb   string
	logLevel    string
	format      string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "~/.cql/multidb.yaml", "Configuration file listing the databases")
	flag.StringVar(&query, "query", "", "SQL statement to run on every database")
	flag.StringVar(&insertTable, "insert", "", "Run the statement once, on the database whose table has the fewest rows")
	flag.Var(&binds, "bind", "Bind a value as name=value or position=value, repeatable")
	flag.StringVar(&sortColumn, "sort", "", "Sort merged rows by column")
	flag.StringVar(&direction, "direction", multidb.SortAsc, "Sort direction, ASC or DESC")
	flag.IntVar(&limit, "limit", -1, "Keep at most limit merged rows, -1 for all")
	flag.IntVar(&offset, "offset", 0, "Skip offset merged rows")
	flag.BoolVar(&genGUID, "guid", false, "Print a new MDGUID")
	flag.StringVar(&metricWeb, "metric-web", "", "Serve metrics on address and wait for a signal to exit")
	flag.StringVar(&logLevel, "log-level", "", "Log level, overrides the config file")
	flag.StringVar(&format, "format", formatJSON, "Output format of rows: json or dump")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
}

func main() {
	flag.Parse()
	if showVersion {
		fmt.Printf("%v %v %v %v %v\n",
			name, version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		os.Exit(0)
	}

	if err := run(); err != nil {
		log.WithError(err).Error("cql-multidb failed")
		os.Exit(-1)
	}
}

func run() (err error) {
	configFile = utils.HomeDirExpand(configFile)
	if !utils.Exist(configFile) {
		return errors.Errorf("config file %s not found", configFile)
	}

	cfg, err := conf.LoadConfig(configFile)
	if err != nil {
		return
	}
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	log.SetStringLevel(logLevel, log.InfoLevel)

	flag.Visit(func(f *flag.Flag) {
		log.Debugf("args %#v : %s", f.Name, f.Value)
	})

	collector := metric.NewCollector()
	var server *http.Server
	if metricWeb != "" {
		reg := metric.StartMetricCollector(collector)
		if reg == nil {
			return errors.New("start metric collector failed")
		}
		if server, err = metric.InitMetricWeb(metricWeb, reg); err != nil {
			return
		}
	}

	ctx := context.Background()
	cs, err := multidb.OpenConfig(ctx, cfg, multidb.WithCollector(collector))
	if err != nil {
		return
	}
	defer func() {
		if cerr := cs.Close(); cerr != nil {
			log.WithError(cerr).Warning("close databases failed")
		}
	}()

	if cs.HasErrors() {
		fmt.Fprintf(os.Stderr, "unreachable databases: %s\n", cs.FailureSummary())
	}

	if genGUID {
		var id string
		if id, err = cs.GenerateID(ctx); err != nil {
			return
		}
		fmt.Println(id)
	}

	if query != "" {
		if err = runQuery(ctx, cs); err != nil {
			return
		}
	}

	if server != nil {
		log.Info("serving metrics, waiting for exit signal")
		<-utils.WaitForExit()

		sctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		_ = server.Shutdown(sctx)
	}

	return
}

func runQuery(ctx context.Context, cs *multidb.ConnectionSet) (err error) {
	stmt, err := cs.Prepare(ctx, query)
	if err != nil {
		return
	}
	defer stmt.Close()

	if err = binds.apply(stmt); err != nil {
		return
	}

	if insertTable != "" {
		if err = stmt.ExecuteInsert(ctx, insertTable); err != nil {
			return
		}
		fmt.Printf("inserted into %s\n", cs.DatabaseNames()[stmt.LastInsertTarget()])
		return
	}

	if err = stmt.Execute(ctx); err != nil {
		return
	}
	if sortColumn != "" {
		if err = stmt.SortBy(sortColumn, direction); err != nil {
			return
		}
	}
	if limit != -1 || offset != 0 {
		if err = stmt.LimitTo(limit, offset); err != nil {
			return
		}
	}

	return printRows(os.Stdout, format, stmt.AllRows())
}

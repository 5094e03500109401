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

/*
Package multidb replicates SQL statements over a fixed, ordered set of
independent databases treated as one logical target.

A ConnectionSet is opened from connection descriptors. Targets that cannot be
reached are recorded and skipped, the rest keep their configured order:

	cs, err := multidb.Open(ctx, descriptors)
	if err != nil {
		return err
	}
	defer cs.Close()
	if cs.HasErrors() {
		log.Warning(cs.FailureSummary())
	}

Prepare returns a MultiStatement holding one prepared statement per live
database. Execute broadcasts it in set order and merges the fetched rows,
stopping at the first database that fails. ExecuteInsert runs it once, on the
database whose table holds the fewest rows:

	stmt, err := cs.Prepare(ctx, "SELECT name, age FROM users WHERE age > ?")
	stmt.Bind(1, 18)
	if err = stmt.Execute(ctx); err == nil {
		stmt.SortBy("age", multidb.SortDesc)
		stmt.LimitTo(10, 0)
		for row, ok := stmt.NextRow(); ok; row, ok = stmt.NextRow() {
			...
		}
	}

The first live database also keeps the MDGUID ledger, see GenerateID.
*/
package multidb

// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

// create a table for stake events
const eventTableSchema = `
create table if not exists event (
	seq integer primary key autoincrement,
	kind varchar(16) not null,
	operator blob(20) not null,
	owner blob(20) not null,
	caller blob(20) not null,
	amount text not null,
	time integer not null,
	grantID integer,
	contract blob(20)
);

CREATE INDEX if not exists operatorIndex on event(operator);
CREATE INDEX if not exists timeIndex on event(time);
CREATE INDEX if not exists kindIndex on event(kind);
`

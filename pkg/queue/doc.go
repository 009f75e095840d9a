/*
Package queue reads and writes the external task queue.

The queue is owned by the submission front end: it inserts rows when users
upload notebooks and may delete rows to cancel them. nbsched treats it as the
desired state. It lists all rows every cycle, writes the status column when a
probe reports progress, and deletes a row once the notebook finished.

# Backends

	sqlite  database/sql + mattn/go-sqlite3 on the front end's queue.db
	        table tasks(id, owner, task_type, duration, program, status, pwd)
	bolt    bbolt file, bucket "tasks", big-endian id keys, JSON rows

Both backends return rows in ascending id order, which is submission order.
Connection and read failures wrap ErrUnavailable.
*/
package queue

/*
Package events provides an in-memory event broker for reconciliation events.

The reconciler publishes one event per effective action so that other parts
of the daemon can observe progress without polling the cluster:

	workload.created   a notebook job and its endpoint were requested
	workload.deleted   an orphan job was removed
	task.completed     a succeeded job was cleaned up and its row deleted
	endpoint.healed    a missing endpoint was recreated
	cycle.completed    one reconciliation cycle finished

Task events carry the task id in Metadata["task_id"]. Every event gets a
random UUID.

# Delivery

Publish never blocks. Events pass through a buffered channel (100) to a
single broadcast goroutine, which copies them into each subscriber's buffer
(50). A full buffer drops the event for that subscriber.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for e := range sub {
			logger.Debug().Str("type", string(e.Type)).Msg(e.Message)
		}
	}()
*/
package events

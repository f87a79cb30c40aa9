package task

import (
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/compresslab/compressor/src/global"
)

const forwardBuffer = 128

// Forward publishes every scheduler event as JSON to the update queue. Events
// are dropped when the publisher falls behind.
func Forward(ctx global.Context, s *Scheduler) {
	events := make(chan TaskEvent, forwardBuffer)

	s.Subscribe(func(e TaskEvent) {
		select {
		case events <- e:
		default:
			logrus.WithField("job_id", e.JobID).Warn("update backlog full, dropping event")
		}
	})

	queue := ctx.Config().Rmq.UpdateQueueName

	ctx.AddTask(1)
	go func() {
		defer ctx.DoneTask()

		for {
			select {
			case <-ctx.Done():
				return
			case e := <-events:
				body, err := json.Marshal(e)
				if err != nil {
					logrus.Warn("bad update message: ", err)
					continue
				}

				if err := ctx.Instances().Rmq.Publish(queue, "application/json", amqp.Transient, body); err != nil {
					logrus.Warn("failed to send update: ", err)
				}
			}
		}
	}()
}

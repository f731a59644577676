package posixmq_test

import (
	"fmt"

	"github.com/aprilabank/posixmq"
)

// This example uses a MockQueue so it runs on any platform; on Linux the
// same code works against a real queue via posixmq.OpenConfig.
func ExampleOpenMockQueue() {
	mq, err := posixmq.OpenMockQueue(posixmq.QueueConfig{
		Name:           "/example-queue",
		MaxMessages:    10,
		MaxMessageSize: 1024,
	})
	if err != nil {
		panic(err)
	}
	defer mq.Close()

	if err := mq.Send(&posixmq.Message{
		Data:     []byte("hello, world!"),
		Priority: 3,
	}); err != nil {
		panic(err)
	}

	msg, err := mq.Receive()
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s (priority %d)\n", msg.Data, msg.Priority)
	// Output:
	// hello, world! (priority 3)
}

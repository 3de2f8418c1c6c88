package mqtt

import "fmt"

// Subscribe registers a handler for messages on the specified topic.
//
// Topics may contain the + and # wildcards. The subscription is restored
// after a reconnect.
//
// Example:
//
//	err := client.Subscribe(mqtt.Topics{}.CommandSubscribe(), 1,
//	    func(topic string, payload []byte) error {
//	        return bridge.handle(topic, payload)
//	    })
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := wait(c.paho.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		c.mu.Lock()
		delete(c.subs, topic)
		c.mu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe removes a subscription. It is not restored on reconnect even
// when the broker call fails.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	return wait(c.paho.Unsubscribe(topic), ErrUnsubscribeFailed)
}

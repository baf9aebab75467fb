// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package convnet

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// ConvNet is the convolutional classification network.
//
// Pipeline:
//
//	conv1 -> ReLU -> pool(3) -> conv2 -> ReLU -> pool(2) -> flatten
//	      -> fc1 -> ReLU -> fc2 -> ReLU -> fc3 -> ReLU -> fc4 (logits)
//
// All layer dimensions come from the Plan computed at construction; Forward
// performs no dynamic shape arithmetic beyond reshaping 2D input to 4D.
type ConvNet[B tensor.Backend] struct {
	plan Plan

	conv1 *nn.Conv2D[B]
	pool1 *nn.MaxPool2D[B]
	conv2 *nn.Conv2D[B]
	pool2 *nn.MaxPool2D[B]
	relu  *nn.ReLU[B]
	fc1   *nn.Linear[B]
	fc2   *nn.Linear[B]
	fc3   *nn.Linear[B]
	fc4   *nn.Linear[B]

	backend B
}

// New builds a ConvNet for the given configuration.
//
// Layers use Born's Xavier initialization. Construction fails fast on
// invalid geometry or an unsupported pooling kind.
func New[B tensor.Backend](cfg Config, backend B) (*ConvNet[B], error) {
	plan, err := NewPlan(cfg)
	if err != nil {
		return nil, err
	}

	return &ConvNet[B]{
		plan: plan,
		conv1: nn.NewConv2D(plan.Conv1.In, plan.Conv1.Out,
			plan.Conv1.Kernel, plan.Conv1.Kernel,
			plan.Conv1.Stride, plan.Conv1.ResolvedPadding(), true, backend),
		pool1: nn.NewMaxPool2D(plan.Pool1.Kernel, plan.Pool1.Stride, backend),
		conv2: nn.NewConv2D(plan.Conv2.In, plan.Conv2.Out,
			plan.Conv2.Kernel, plan.Conv2.Kernel,
			plan.Conv2.Stride, plan.Conv2.ResolvedPadding(), true, backend),
		pool2:   nn.NewMaxPool2D(plan.Pool2.Kernel, plan.Pool2.Stride, backend),
		relu:    nn.NewReLU[B](),
		fc1:     nn.NewLinear[B](plan.FlatFeatures, plan.Hidden[0], backend),
		fc2:     nn.NewLinear[B](plan.Hidden[0], plan.Hidden[1], backend),
		fc3:     nn.NewLinear[B](plan.Hidden[1], plan.Hidden[2], backend),
		fc4:     nn.NewLinear[B](plan.Hidden[2], plan.Classes, backend),
		backend: backend,
	}, nil
}

// Plan returns the resolved layer layout.
func (m *ConvNet[B]) Plan() Plan {
	return m.plan
}

// NumClasses returns the number of output classes.
func (m *ConvNet[B]) NumClasses() int {
	return m.plan.Classes
}

// Forward computes class logits for a batch of images.
//
// Input is either [batch, channels, height, width] or flattened
// [batch, channels*height*width]; 2D input is reshaped using the plan's
// dimensions. Returns raw logits [batch, classes] (no softmax; the
// cross-entropy criterion applies it internally).
func (m *ConvNet[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	switch len(shape) {
	case 2:
		input = input.Reshape(shape[0], m.plan.Channels, m.plan.Height, m.plan.Width)
	case 4:
		// Already [batch, C, H, W].
	default:
		panic(fmt.Sprintf("convnet: expected 2D or 4D input, got %dD", len(shape)))
	}

	x := m.conv1.Forward(input)
	x = m.relu.Forward(x)
	x = m.pool1.Forward(x)

	x = m.conv2.Forward(x)
	x = m.relu.Forward(x)
	x = m.pool2.Forward(x)

	batchSize := x.Shape()[0]
	x = x.Reshape(batchSize, m.plan.FlatFeatures)

	x = m.fc1.Forward(x)
	x = m.relu.Forward(x)
	x = m.fc2.Forward(x)
	x = m.relu.Forward(x)
	x = m.fc3.Forward(x)
	x = m.relu.Forward(x)
	return m.fc4.Forward(x)
}

// Parameters returns all trainable parameters.
func (m *ConvNet[B]) Parameters() []*nn.Parameter[B] {
	// 6 layers with weight+bias each.
	params := make([]*nn.Parameter[B], 0, 12)
	params = append(params, m.conv1.Parameters()...)
	params = append(params, m.conv2.Parameters()...)
	params = append(params, m.fc1.Parameters()...)
	params = append(params, m.fc2.Parameters()...)
	params = append(params, m.fc3.Parameters()...)
	params = append(params, m.fc4.Parameters()...)
	return params
}

// namedParam pairs a state-dict key with its parameter.
type namedParam[B tensor.Backend] struct {
	name  string
	param *nn.Parameter[B]
}

func (m *ConvNet[B]) namedParameters() []namedParam[B] {
	layers := []struct {
		name   string
		params []*nn.Parameter[B]
	}{
		{"conv1", m.conv1.Parameters()},
		{"conv2", m.conv2.Parameters()},
		{"fc1", m.fc1.Parameters()},
		{"fc2", m.fc2.Parameters()},
		{"fc3", m.fc3.Parameters()},
		{"fc4", m.fc4.Parameters()},
	}

	named := make([]namedParam[B], 0, 12)
	for _, layer := range layers {
		// Each layer exposes [weight, bias] in that order.
		suffixes := []string{"weight", "bias"}
		for i, p := range layer.params {
			named = append(named, namedParam[B]{
				name:  layer.name + "." + suffixes[i],
				param: p,
			})
		}
	}
	return named
}

// StateDict returns a map of parameter names to raw tensors.
//
// Keys follow the "<layer>.<weight|bias>" convention (e.g. "conv1.weight").
func (m *ConvNet[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, np := range m.namedParameters() {
		stateDict[np.name] = np.param.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict loads parameters from a state dictionary.
//
// Every parameter of the model must be present with matching shape and
// dtype; data is copied into the existing parameter tensors.
func (m *ConvNet[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, np := range m.namedParameters() {
		raw, ok := stateDict[np.name]
		if !ok {
			return fmt.Errorf("convnet: missing %s in state dict", np.name)
		}
		want := np.param.Tensor().Shape()
		if !raw.Shape().Equal(want) {
			return fmt.Errorf("convnet: %s shape mismatch: expected %v, got %v",
				np.name, want, raw.Shape())
		}
		if raw.DType() != tensor.Float32 {
			return fmt.Errorf("convnet: %s dtype mismatch: expected float32, got %v",
				np.name, raw.DType())
		}
		copy(np.param.Tensor().Data(), raw.AsFloat32())
	}
	return nil
}

// String returns a string representation of the architecture.
func (m *ConvNet[B]) String() string {
	return fmt.Sprintf(`ConvNet(
  %s
  ReLU()
  %s
  %s
  ReLU()
  %s
  Linear(in=%d, out=%d)
  ReLU()
  Linear(in=%d, out=%d)
  ReLU()
  Linear(in=%d, out=%d)
  ReLU()
  Linear(in=%d, out=%d)
)`,
		m.conv1.String(),
		m.pool1.String(),
		m.conv2.String(),
		m.pool2.String(),
		m.plan.FlatFeatures, m.plan.Hidden[0],
		m.plan.Hidden[0], m.plan.Hidden[1],
		m.plan.Hidden[1], m.plan.Hidden[2],
		m.plan.Hidden[2], m.plan.Classes)
}

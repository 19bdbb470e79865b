package manifest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/serializer/yaml"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
)

// Applier applies manifests through a dynamic client
type Applier struct {
	client dynamic.Interface
	mapper meta.RESTMapper
}

// NewApplier creates an Applier from explicit clients
func NewApplier(client dynamic.Interface, mapper meta.RESTMapper) *Applier {
	return &Applier{client: client, mapper: mapper}
}

// NewApplierForConfig creates an Applier for the cluster behind config,
// discovering resource mappings lazily
func NewApplierForConfig(config *rest.Config) (*Applier, error) {
	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(discoveryClient))

	return NewApplier(dynamicClient, mapper), nil
}

// ApplyBytes applies YAML manifests from raw bytes.
// The data may contain multiple YAML documents separated by "---".
// Optional mutators are called on each object before it is applied.
func (a *Applier) ApplyBytes(ctx context.Context, data []byte, mutators ...func(*unstructured.Unstructured)) error {
	documents, err := SplitDocuments(data)
	if err != nil {
		return err
	}
	return a.applyDocuments(ctx, documents, mutators...)
}

// SplitDocuments splits multi-document YAML on "---" lines, dropping empty documents.
// Separators may carry a trailing comment and lines may end in CRLF.
func SplitDocuments(data []byte) ([][]byte, error) {
	reader := bufio.NewReader(bytes.NewReader(data))

	var (
		documents [][]byte
		current   bytes.Buffer
	)
	flush := func() {
		if trimmed := bytes.TrimSpace(current.Bytes()); len(trimmed) > 0 {
			documents = append(documents, append([]byte(nil), trimmed...))
		}
		current.Reset()
	}

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to split manifest: %w", err)
		}

		if isDocumentSeparator(line) {
			flush()
		} else {
			current.Write(line)
		}

		if errors.Is(err, io.EOF) {
			flush()
			return documents, nil
		}
	}
}

// isDocumentSeparator matches "---" at the start of a line, optionally
// followed by whitespace or a comment
func isDocumentSeparator(line []byte) bool {
	if !bytes.HasPrefix(line, []byte("---")) {
		return false
	}
	rest := bytes.TrimSpace(line[3:])
	return len(rest) == 0 || rest[0] == '#'
}

// applyDocuments decodes and applies a slice of YAML documents.
func (a *Applier) applyDocuments(ctx context.Context, documents [][]byte, mutators ...func(*unstructured.Unstructured)) error {
	decoder := yaml.NewDecodingSerializer(unstructured.UnstructuredJSONScheme)

	for i, doc := range documents {
		obj := &unstructured.Unstructured{}
		_, gvk, err := decoder.Decode(doc, nil, obj)
		if err != nil {
			return fmt.Errorf("failed to decode document %d: %w", i, err)
		}

		if gvk == nil || obj.GetKind() == "" {
			continue
		}

		for _, mutate := range mutators {
			mutate(obj)
		}

		mapping, err := a.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if err != nil {
			return fmt.Errorf("failed to get REST mapping for %s: %w", gvk.String(), err)
		}

		var resourceClient dynamic.ResourceInterface
		if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
			namespace := obj.GetNamespace()
			if namespace == "" {
				namespace = "default"
			}
			resourceClient = a.client.Resource(mapping.Resource).Namespace(namespace)
		} else {
			resourceClient = a.client.Resource(mapping.Resource)
		}

		_, err = resourceClient.Create(ctx, obj, metav1.CreateOptions{})
		if apierrors.IsAlreadyExists(err) {
			existing, getErr := resourceClient.Get(ctx, obj.GetName(), metav1.GetOptions{})
			if getErr != nil {
				return fmt.Errorf("failed to get %s %s: %w", obj.GetKind(), obj.GetName(), getErr)
			}
			obj.SetResourceVersion(existing.GetResourceVersion())
			_, err = resourceClient.Update(ctx, obj, metav1.UpdateOptions{})
		}
		if err != nil {
			return fmt.Errorf("failed to apply %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}
	}

	return nil
}

package command

import "strings"

// DefaultRuntime is the container CLI used when none is configured.
const DefaultRuntime = "docker"

// RunOptions are the inputs of ImageRun. Empty optional fields are omitted
// from the argument list rather than passed as empty strings.
type RunOptions struct {
	Image string
	Tag   string
	Name  string
	Ports []string
}

// Reference returns the image reference passed to run, see ImageRef.
func (o RunOptions) Reference() string {
	return ImageRef(o.Image, o.Tag)
}

// ImageRef appends tag to image unless tag is empty or image already names
// a tag. A registry port ("localhost:5000/app") is not a tag.
func ImageRef(image, tag string) string {
	if tag == "" || strings.Contains(image[strings.LastIndex(image, "/")+1:], ":") {
		return image
	}
	return image + ":" + tag
}

func runtimeOrDefault(runtime string) string {
	if runtime == "" {
		return DefaultRuntime
	}
	return runtime
}

// ImageBuild builds the Dockerfile found in contextDir.
func ImageBuild(runtime, contextDir, tag string) Descriptor {
	args := []string{"build"}
	if tag != "" {
		args = append(args, "-t", tag)
	}
	args = append(args, contextDir)
	return New(KindImageBuild, runtimeOrDefault(runtime), args, "")
}

// ImagePull downloads image from its registry.
func ImagePull(runtime, image string) Descriptor {
	return New(KindImagePull, runtimeOrDefault(runtime), []string{"pull", image}, "")
}

// ImageRun starts a detached container.
func ImageRun(runtime string, opts RunOptions) Descriptor {
	args := []string{"run", "-d"}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	for _, p := range opts.Ports {
		if p != "" {
			args = append(args, "-p", p)
		}
	}
	args = append(args, opts.Reference())
	return New(KindImageRun, runtimeOrDefault(runtime), args, "")
}

// ImageSearch searches the registry for term.
func ImageSearch(runtime, term string) Descriptor {
	return New(KindImageSearch, runtimeOrDefault(runtime), []string{"search", term}, "")
}

// ContainerStop stops a container by ID or name.
func ContainerStop(runtime, id string) Descriptor {
	return New(KindContainerStop, runtimeOrDefault(runtime), []string{"stop", id}, "")
}

// ContainerList lists running containers, or all containers when all is set.
func ContainerList(runtime string, all bool) Descriptor {
	args := []string{"ps"}
	if all {
		args = append(args, "-a")
	}
	return New(KindContainerList, runtimeOrDefault(runtime), args, "")
}

// ImageList lists local images.
func ImageList(runtime string) Descriptor {
	return New(KindImageList, runtimeOrDefault(runtime), []string{"images"}, "")
}

// VersionCheck prints the runtime client version.
func VersionCheck(runtime string) Descriptor {
	return New(KindVersionCheck, runtimeOrDefault(runtime), []string{"--version"}, "")
}
